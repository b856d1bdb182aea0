package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/taskflow/server/internal/api/middleware"
	"github.com/taskflow/server/internal/domain/errs"
)

var Provider = wire.NewSet(
	NewTaskAPI,
	NewRegularTaskAPI,
	NewCommonAPI,
	NewServer,
)

// onGinBind 绑定失败统一转成 validation 错误
func onGinBind(c *gin.Context, val any, typ string) bool {
	var err error
	switch typ {
	case "JSON":
		err = c.ShouldBindJSON(val)
	case "QUERY":
		err = c.ShouldBindQuery(val)
	case "URI":
		err = c.ShouldBindUri(val)
	default:
		err = c.ShouldBind(val)
	}
	if err != nil {
		_ = c.Error(errs.Validation(errs.CodeTaskInvalidInput, "malformed request").WithReason(err.Error()))
		return false
	}
	return true
}

func onGinResponse[T any](c *gin.Context, data T, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func onGinCreated[T any](c *gin.Context, data T, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, data)
}

func onGinNoContent(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// actor 鉴权中间件写入的用户ID
func actor(c *gin.Context) uint64 {
	return middleware.UserID(c)
}
