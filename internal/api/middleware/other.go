package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/taskflow/server/internal/domain/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	Reason        string   `json:"reason,omitempty"`
	Hint          string   `json:"hint,omitempty"`
	Code          string   `json:"code"`
	CurrentStatus string   `json:"current_status,omitempty"`
	AllowedFrom   []string `json:"allowed_from,omitempty"`
	Details       any      `json:"details,omitempty"`
}

// StatusOf 错误分类对应的 HTTP 状态码
func StatusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse 业务错误原样透出 reason/hint，其他错误只返回通用信息
func NewErrorResponse(err error) (int, ErrorResponse) {
	if e, ok := errs.As(err); ok {
		resp := ErrorResponse{
			Error:   string(e.Kind),
			Message: e.Message,
			Reason:  e.Reason,
			Hint:    e.Hint,
			Code:    e.Code,
		}
		details := lo.OmitByKeys(e.Details, []string{"current_status", "allowed_from"})
		if len(details) > 0 {
			resp.Details = details
		}
		if v, ok := e.Details["current_status"].(string); ok {
			resp.CurrentStatus = v
		}
		if v, ok := e.Details["allowed_from"].([]string); ok {
			resp.AllowedFrom = v
		}
		return StatusOf(e.Kind), resp
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, ErrorResponse{Error: string(errs.KindNotFound), Code: "NOT_FOUND", Message: "Resource not found"}
	case errors.Is(err, errs.ErrDuplicate), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, ErrorResponse{Error: string(errs.KindConflict), Code: "DUPLICATE", Message: "Resource already exists"}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal",
		Code:    "INTERNAL_ERROR",
		Message: "An error occurred while processing your request",
	}
}

// ErrorHandlingMiddleware 统一错误处理中间件
func ErrorHandlingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", RequestID(c)))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "internal",
					Code:    "INTERNAL_ERROR",
					Message: "An internal error occurred",
				})
			}
		}()

		c.Next()

		// 处理错误
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, resp := NewErrorResponse(err)
		fields := []zap.Field{
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", RequestID(c)),
			zap.Int("status", status),
		}
		switch {
		case resp.Error == string(errs.KindConfiguration):
			logger.Error("configuration error", fields...)
		case status >= http.StatusInternalServerError:
			logger.Error("request error", fields...)
		default:
			logger.Info("request rejected", fields...)
		}
		if !c.Writer.Written() {
			c.JSON(status, resp)
		}
	}
}
