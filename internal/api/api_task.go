package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/workflow"
	"github.com/taskflow/server/internal/domain/errs"
)

type ITaskAPI interface {
	// Create 创建任务
	// 操作者即发起人，任务直接进入 IN_PROGRESS
	// @POST(api/v1/tasks)
	Create(ctx *gin.Context, req CreateTaskReq) (TaskResp, error)

	// Get 获取任务详情
	// 不可见的任务返回 404
	// @GET(api/v1/tasks/{id})
	Get(ctx *gin.Context, id uint64) (TaskResp, error)

	// Patch 修改任务
	// 仅 INBOX/IN_PROGRESS 且尚无报告时可修改标题、描述、截止日期
	// @PATCH(api/v1/tasks/{id})
	Patch(ctx *gin.Context, id uint64, req PatchTaskReq) (TaskResp, error)

	// Report 提交报告
	// @POST(api/v1/tasks/{id}/report)
	Report(ctx *gin.Context, id uint64, req ReportReq) (TaskResp, error)

	// Decide 审批报告
	// approve=true 通过，false 驳回
	// @POST(api/v1/tasks/{id}/approve)
	Decide(ctx *gin.Context, id uint64, req DecisionReq) (TaskResp, error)

	// Archive 归档任务
	// @POST(api/v1/tasks/{id}/archive)
	Archive(ctx *gin.Context, id uint64) error

	// ListEvents 当前用户的事件
	// 按审计ID升序，cursor 为上一页最后一条的 audit_id
	// @GET(api/v1/events)
	ListEvents(ctx *gin.Context, req ListEventsReq) (ListEventsResp, error)
}

var _ ITaskAPI = (*TaskAPI)(nil)

type TaskAPI struct {
	usecase *workflow.Usecase
}

func NewTaskAPI(usecase *workflow.Usecase) *TaskAPI {
	return &TaskAPI{usecase: usecase}
}

func (a *TaskAPI) Create(ctx *gin.Context, req CreateTaskReq) (TaskResp, error) {
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return TaskResp{}, err
	}
	view, err := a.usecase.Create(ctx, actor(ctx), workflow.CreateInput{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ExecutorRoleID: req.ExecutorRoleID,
		ApproverRoleID: req.ApproverRoleID,
		PeriodID:       req.PeriodID,
		Scope:          req.Scope.toDomain(),
		DueDate:        due,
	})
	if err != nil {
		return TaskResp{}, err
	}
	return toTaskResp(view), nil
}

func (a *TaskAPI) Get(ctx *gin.Context, id uint64) (TaskResp, error) {
	view, err := a.usecase.Get(ctx, actor(ctx), id)
	if err != nil {
		return TaskResp{}, err
	}
	return toTaskResp(view), nil
}

func (a *TaskAPI) Patch(ctx *gin.Context, id uint64, req PatchTaskReq) (TaskResp, error) {
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return TaskResp{}, err
	}
	view, err := a.usecase.Patch(ctx, actor(ctx), id, workflow.PatchInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		return TaskResp{}, err
	}
	return toTaskResp(view), nil
}

func (a *TaskAPI) Report(ctx *gin.Context, id uint64, req ReportReq) (TaskResp, error) {
	view, err := a.usecase.Report(ctx, actor(ctx), id, workflow.ReportInput{
		Link:    req.ReportLink,
		Comment: req.Comment,
	})
	if err != nil {
		return TaskResp{}, err
	}
	return toTaskResp(view), nil
}

func (a *TaskAPI) Decide(ctx *gin.Context, id uint64, req DecisionReq) (TaskResp, error) {
	if req.Approve == nil {
		return TaskResp{}, errs.Validation(errs.CodeTaskInvalidInput, "approve is required").
			WithDetail("field", "approve")
	}
	view, err := a.usecase.Decide(ctx, actor(ctx), id, workflow.DecisionInput{
		Approve: *req.Approve,
		Comment: req.Comment,
	})
	if err != nil {
		return TaskResp{}, err
	}
	return toTaskResp(view), nil
}

func (a *TaskAPI) Archive(ctx *gin.Context, id uint64) error {
	return a.usecase.Archive(ctx, actor(ctx), id)
}

func (a *TaskAPI) ListEvents(ctx *gin.Context, req ListEventsReq) (ListEventsResp, error) {
	events, err := a.usecase.ListEvents(ctx, actor(ctx), workflow.ListEventsInput{
		Cursor: req.Cursor,
		Limit:  req.Limit,
		Type:   req.EventType,
	})
	if err != nil {
		return ListEventsResp{}, err
	}
	resp := ListEventsResp{
		Items:      lo.Map(events, func(ev *event.Event, _ int) EventResp { return toEventResp(ev) }),
		NextCursor: req.Cursor,
	}
	if len(events) > 0 {
		resp.NextCursor = events[len(events)-1].AuditID
	}
	return resp, nil
}
