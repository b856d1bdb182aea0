package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestNewErrorResponse(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{errs.Forbidden(errs.CodeTaskForbiddenExecutor, "no"), http.StatusForbidden, "forbidden"},
		{errs.Conflict(errs.CodeTaskConflictStatus, "no"), http.StatusConflict, "conflict"},
		{errs.NotFound(errs.CodeTaskNotFound, "no"), http.StatusNotFound, "not_found"},
		{errs.Validation(errs.CodeTaskInvalidInput, "no"), http.StatusBadRequest, "validation"},
		{errs.Configuration(errs.CodeStatusNotFound, "no"), http.StatusInternalServerError, "configuration"},
		{errs.Wrapf(errs.NotFound(errs.CodeTemplateNotFound, "no"), "load"), http.StatusNotFound, "not_found"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{errs.ErrDuplicate, http.StatusConflict, "conflict"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, resp := NewErrorResponse(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, resp.Error, tc.err.Error())
	}
}

func TestNewErrorResponseDetails(t *testing.T) {
	err := errs.Conflict(errs.CodeTaskConflictStatus, "cannot report").
		WithReason("task is waiting for approval").
		WithHint("wait for the decision").
		WithDetail("current_status", "WAITING_APPROVAL").
		WithDetail("allowed_from", []string{"IN_PROGRESS"}).
		WithDetail("task_id", uint64(7))

	_, resp := NewErrorResponse(err)
	assert.Equal(t, "TASK_CONFLICT_STATUS", resp.Code)
	assert.Equal(t, "task is waiting for approval", resp.Reason)
	assert.Equal(t, "wait for the decision", resp.Hint)
	assert.Equal(t, "WAITING_APPROVAL", resp.CurrentStatus)
	assert.Equal(t, []string{"IN_PROGRESS"}, resp.AllowedFrom)
	assert.Equal(t, map[string]any{"task_id": uint64(7)}, resp.Details)
}

func TestErrorHandlingMiddlewareRecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestErrorHandlingMiddlewareLogsByKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware(zap.New(core)))
	r.GET("/config", func(c *gin.Context) {
		_ = c.Error(errs.Configuration(errs.CodeStatusNotFound, "status dictionary is empty"))
	})
	r.GET("/internal", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(errs.Conflict(errs.CodeTaskConflictStatus, "no"))
	})

	for _, path := range []string{"/config", "/internal", "/conflict"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "configuration error", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "request error", entries[1].Message)
	assert.Equal(t, "request rejected", entries[2].Message)
	assert.Equal(t, zap.InfoLevel, entries[2].Level)
}

func authRouter(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func call(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthBearer(t *testing.T) {
	r := authRouter(config.AuthConfig{Enabled: true, Secret: "s3cret"})

	token, err := SignToken("s3cret", Claims{UserID: 12})
	require.NoError(t, err)
	w := call(r, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":12}`, w.Body.String())

	expired, err := SignToken("s3cret", Claims{UserID: 12, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)
	w = call(r, "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")

	noUser, err := SignToken("s3cret", Claims{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Authorization", "Bearer "+noUser).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 12})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Authorization", "Bearer "+unsigned).Code)

	assert.Equal(t, http.StatusUnauthorized, call(r, "Authorization", token).Code)
}

func TestAuthDevHeader(t *testing.T) {
	r := authRouter(config.AuthConfig{Enabled: false, DevUserHeader: "X-User-ID"})

	w := call(r, "X-User-ID", "7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(r, "X-User-ID", "abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "", "").Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}
