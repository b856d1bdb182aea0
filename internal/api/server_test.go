package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/api"
	"github.com/taskflow/server/internal/api/middleware"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/biztest"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/policy"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/workflow"
	"github.com/taskflow/server/internal/domain/txn/txntest"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

const (
	roleExecutor   uint64 = 10
	roleOther      uint64 = 11
	roleSupervisor uint64 = 90

	userInitiator  uint64 = 1
	userExecutor   uint64 = 2
	userSupervisor uint64 = 4
	userStranger   uint64 = 5

	secret = "test-secret"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type fixture struct {
	store    *biztest.Store
	router   *gin.Engine
	periodID uint64
	cfg      config.Config
}

func setup(t *testing.T, auth config.AuthConfig, health error) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := biztest.NewStore()
	store.Directory.AddRole(roleExecutor, "Accountant")
	store.Directory.AddRole(roleOther, "Clerk")
	store.Directory.AddRole(roleSupervisor, "Director")
	store.Directory.AddUser(userInitiator, roleOther, "")
	store.Directory.AddUser(userExecutor, roleExecutor, "")
	store.Directory.AddUser(userSupervisor, roleSupervisor, "")
	store.Directory.AddUser(userStranger, roleOther, "")

	p := &period.Period{Kind: period.Monthly, Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Periods.Create(context.Background(), p))

	tx := &txntest.Direct{}
	m := metrics.NewNop()
	pol := policy.New(policy.Config{Mode: policy.ModeUnit, ApproverMode: policy.ApproverSupervisor, PrivilegedRoleIDs: []uint64{roleSupervisor}})
	fanout := event.NewFanout(store.Events, store.Directory, store.Tasks, tx, event.Config{PrivilegedRoleIDs: []uint64{roleSupervisor}}, m, zap.NewNop())
	auditLog := audit.NewLog(store.Audit)
	uc := workflow.NewUsecase(store.Tasks, store.Periods, store.Directory, pol, auditLog, fanout, tx, workflow.Config{}, m, zap.NewNop())
	engine := recurring.NewEngine(store.Recurring, store.Tasks, period.NewResolver(store.Periods, tx), store.Directory, uc, auditLog, tx,
		recurring.EngineConfig{Location: time.UTC}, m, zap.NewNop(),
		recurring.WithIDGenerator(func() uint64 { return 42 }))

	cfg := config.Config{
		Server:  config.ServerConfig{AllowOrigins: []string{"*"}},
		Auth:    auth,
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	srv := api.NewServer(cfg,
		api.NewTaskAPI(uc),
		api.NewRegularTaskAPI(engine, recurring.NewTemplates(store.Recurring)),
		api.NewCommonAPI(pinger{err: health}),
		metrics.NewRegistry(),
		zap.NewNop(),
	)
	return &fixture{store: store, router: srv.Router(), periodID: p.ID, cfg: cfg}
}

func devAuth() config.AuthConfig {
	return config.AuthConfig{Enabled: false, DevUserHeader: "X-User-ID"}
}

func (f *fixture) do(t *testing.T, method, path string, user uint64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-User-ID", strconv.FormatUint(user, 10))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) createTask(t *testing.T) api.TaskResp {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/tasks", userInitiator, map[string]any{
		"title":            "Quarterly report",
		"executor_role_id": roleExecutor,
		"period_id":        f.periodID,
		"due_date":         "2026-10-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.TaskResp](t, w)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	f := setup(t, devAuth(), nil)

	created := f.createTask(t)
	assert.Equal(t, "IN_PROGRESS", created.Status)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-10-10", *created.DueDate)
	path := "/api/v1/tasks/" + strconv.FormatUint(created.ID, 10)

	w := f.do(t, http.MethodPost, path+"/report", userExecutor, map[string]any{"report_link": "https://docs/1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reported := decode[api.TaskResp](t, w)
	assert.Equal(t, "WAITING_APPROVAL", reported.Status)
	require.NotNil(t, reported.Report)
	assert.Equal(t, "https://docs/1", reported.Report.ReportLink)

	w = f.do(t, http.MethodPost, path+"/approve", userSupervisor, map[string]any{"approve": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "DONE", decode[api.TaskResp](t, w).Status)

	w = f.do(t, http.MethodGet, "/api/v1/events?limit=10", userExecutor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	events := decode[api.ListEventsResp](t, w)
	require.NotEmpty(t, events.Items)
	assert.Equal(t, events.Items[len(events.Items)-1].AuditID, events.NextCursor)

	w = f.do(t, http.MethodGet, "/api/v1/events?event_type=approved&cursor="+strconv.FormatUint(events.NextCursor, 10), userExecutor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[api.ListEventsResp](t, w).Items)

	w = f.do(t, http.MethodPost, path+"/archive", userInitiator, nil)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}

func TestConflictResponseCarriesStatus(t *testing.T) {
	f := setup(t, devAuth(), nil)
	created := f.createTask(t)
	path := "/api/v1/tasks/" + strconv.FormatUint(created.ID, 10)

	w := f.do(t, http.MethodPost, path+"/approve", userSupervisor, map[string]any{"approve": true})
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[middleware.ErrorResponse](t, w)
	assert.Equal(t, "conflict", resp.Error)
	assert.Equal(t, "TASK_CONFLICT_STATUS", resp.Code)
	assert.Equal(t, "IN_PROGRESS", resp.CurrentStatus)
	assert.Equal(t, []string{"WAITING_APPROVAL"}, resp.AllowedFrom)
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	f := setup(t, devAuth(), nil)
	created := f.createTask(t)
	path := "/api/v1/tasks/" + strconv.FormatUint(created.ID, 10)

	w := f.do(t, http.MethodGet, path, userStranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TASK_NOT_FOUND", decode[middleware.ErrorResponse](t, w).Code)

	w = f.do(t, http.MethodPost, path+"/report", userInitiator, map[string]any{"report_link": "https://docs/1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode[middleware.ErrorResponse](t, w).Error)

	w = f.do(t, http.MethodPost, path+"/report", userExecutor, map[string]any{"report_link": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TASK_REPORT_LINK_REQUIRED", decode[middleware.ErrorResponse](t, w).Code)

	w = f.do(t, http.MethodPost, path+"/approve", userSupervisor, map[string]any{"comment": "no flag"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/tasks/abc", userExecutor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, path, userInitiator, map[string]any{"due_date": "10/10/2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchOverHTTP(t *testing.T) {
	f := setup(t, devAuth(), nil)
	created := f.createTask(t)
	path := "/api/v1/tasks/" + strconv.FormatUint(created.ID, 10)

	w := f.do(t, http.MethodPatch, path, userInitiator, map[string]any{"title": "Renamed", "due_date": "2026-11-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[api.TaskResp](t, w)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "2026-11-01", *got.DueDate)
}

func TestMissingIdentity(t *testing.T) {
	f := setup(t, devAuth(), nil)
	w := f.do(t, http.MethodGet, "/api/v1/tasks/1", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	f := setup(t, config.AuthConfig{Enabled: true, Secret: secret}, nil)
	created := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(`{"title":"t","executor_role_id":10,"period_id":1}`))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w.Code
	}

	good, err := middleware.SignToken(secret, middleware.Claims{UserID: userInitiator})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, created(good))

	forged, err := middleware.SignToken("other-secret", middleware.Claims{UserID: userInitiator})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, created(forged))
	assert.Equal(t, http.StatusUnauthorized, created(""))
}

func TestRegularTasksOverHTTP(t *testing.T) {
	f := setup(t, devAuth(), nil)

	w := f.do(t, http.MethodPost, "/api/v1/regular-tasks", userSupervisor, map[string]any{
		"code":               "Monthly VAT return",
		"executor_role_id":   roleExecutor,
		"schedule_type":      "monthly",
		"schedule_params":    map[string]any{"bymonthday": []int{15}},
		"create_offset_days": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tpl := decode[api.TemplateResp](t, w)
	assert.Equal(t, userSupervisor, tpl.InitiatorID)
	assert.True(t, tpl.Active)

	w = f.do(t, http.MethodGet, "/api/v1/regular-tasks/"+strconv.FormatUint(tpl.ID, 10), userSupervisor, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/regular-tasks/999", userSupervisor, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/regular-tasks", userSupervisor, map[string]any{
		"code":             "Broken",
		"executor_role_id": roleExecutor,
		"schedule_type":    "weekly",
		"schedule_params":  map[string]any{"byweekday": []int{9}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/regular-tasks/run", userSupervisor, map[string]any{"date": "2026-10-10", "dry_run": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[api.RunResp](t, w)
	assert.True(t, run.DryRun)
	assert.Equal(t, "2026-10-10", run.Date)
	assert.Equal(t, 1, run.Stats.Scanned)
	assert.Equal(t, 1, run.Stats.Created)

	w = f.do(t, http.MethodGet, "/api/v1/regular-tasks?active_only=true", userSupervisor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]api.TemplateResp](t, w), 1)

	w = f.do(t, http.MethodPost, "/api/v1/regular-tasks/run", userSupervisor, map[string]any{"date": "10.10.2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t, devAuth(), nil)
	w := f.do(t, http.MethodGet, "/api/v1/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = f.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	down := setup(t, devAuth(), errors.New("db down"))
	w = down.do(t, http.MethodGet, "/api/v1/health", 0, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
