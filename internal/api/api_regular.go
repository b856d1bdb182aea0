package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/domain/errs"
)

type IRegularTaskAPI interface {
	// Run 手动触发周期任务引擎
	// date 覆盖运行日期，dry_run 时所有写入回滚
	// @POST(api/v1/regular-tasks/run)
	Run(ctx *gin.Context, req RunReq) (RunResp, error)

	// Create 创建周期任务模板
	// @POST(api/v1/regular-tasks)
	Create(ctx *gin.Context, req TemplateReq) (TemplateResp, error)

	// List 模板列表
	// @GET(api/v1/regular-tasks)
	List(ctx *gin.Context, req ListTemplatesReq) ([]TemplateResp, error)

	// Get 模板详情
	// @GET(api/v1/regular-tasks/{id})
	Get(ctx *gin.Context, id uint64) (TemplateResp, error)
}

var _ IRegularTaskAPI = (*RegularTaskAPI)(nil)

// Engine 周期任务引擎
type Engine interface {
	Run(ctx context.Context, opts recurring.RunOptions) (*recurring.RunResult, error)
}

type RegularTaskAPI struct {
	engine    Engine
	templates *recurring.Templates
}

func NewRegularTaskAPI(engine Engine, templates *recurring.Templates) *RegularTaskAPI {
	return &RegularTaskAPI{engine: engine, templates: templates}
}

func (a *RegularTaskAPI) Run(ctx *gin.Context, req RunReq) (RunResp, error) {
	opts := recurring.RunOptions{
		DryRun:         req.DryRun,
		IgnoreTimeGate: req.IgnoreTimeGate,
		ForceDueAll:    req.ForceDueAll,
	}
	if req.Date != "" {
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return RunResp{}, errs.Validation(errs.CodeTaskInvalidInput, "invalid date").
				WithReason("date must be YYYY-MM-DD").
				WithDetail("field", "date")
		}
		opts.Date = mo.Some(d)
	}
	res, err := a.engine.Run(ctx, opts)
	if err != nil {
		return RunResp{}, err
	}
	return toRunResp(res), nil
}

func (a *RegularTaskAPI) Create(ctx *gin.Context, req TemplateReq) (TemplateResp, error) {
	params, err := json.Marshal(req.ScheduleParams)
	if err != nil {
		return TemplateResp{}, errs.Validation(errs.CodeTemplateInvalid, "invalid schedule params").WithReason(err.Error())
	}
	if req.ScheduleParams == nil {
		params = []byte("{}")
	}
	tpl := &recurring.Template{
		Active:           lo.FromPtrOr(req.Active, true),
		Code:             req.Code,
		Title:            req.Title,
		Description:      req.Description,
		ExecutorRoleID:   req.ExecutorRoleID,
		ApproverRoleID:   req.ApproverRoleID,
		InitiatorID:      req.InitiatorID,
		ScheduleType:     period.Kind(strings.ToLower(req.ScheduleType)),
		ScheduleParams:   params,
		CreateOffsetDays: req.CreateOffsetDays,
		DueOffsetDays:    req.DueOffsetDays,
	}
	if s := req.Scope.toDomain(); s != nil {
		tpl.Scope = *s
	}
	if tpl.InitiatorID == 0 {
		tpl.InitiatorID = actor(ctx)
	}
	if err := a.templates.Create(ctx, tpl); err != nil {
		return TemplateResp{}, err
	}
	return toTemplateResp(tpl), nil
}

func (a *RegularTaskAPI) List(ctx *gin.Context, req ListTemplatesReq) ([]TemplateResp, error) {
	items, err := a.templates.List(ctx, recurring.TemplateFilter{
		ActiveOnly: req.ActiveOnly,
		Offset:     req.Offset,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(t *recurring.Template, _ int) TemplateResp { return toTemplateResp(t) }), nil
}

func (a *RegularTaskAPI) Get(ctx *gin.Context, id uint64) (TemplateResp, error) {
	tpl, err := a.templates.Get(ctx, id)
	if err != nil {
		return TemplateResp{}, err
	}
	return toTemplateResp(tpl), nil
}
