package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/wire"
	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/policy"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/internal/domain/txn"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

var Provider = wire.NewSet(
	NewConfig,
	NewUsecase,
	wire.Bind(new(recurring.TaskCreator), new(*Usecase)),
)

func NewConfig(cfg config.Config) Config {
	return Config{DefaultScope: task.ScopeKind(cfg.Recurring.DefaultScope)}
}

// Usecase 任务状态机。每个操作一个事务：锁行、可见性、状态、权限、输入、变更、审计、事件
type Usecase struct {
	tasks     task.Repo
	periods   period.Repo
	directory directory.Repo
	policy    *policy.Policy
	audit     *audit.Log
	fanout    *event.Fanout
	tx        txn.Manager
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewUsecase(
	tasks task.Repo,
	periods period.Repo,
	dir directory.Repo,
	pol *policy.Policy,
	auditLog *audit.Log,
	fanout *event.Fanout,
	tx txn.Manager,
	cfg Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Usecase {
	if cfg.DefaultScope == "" {
		cfg.DefaultScope = task.ScopeFunctional
	}
	return &Usecase{
		tasks:     tasks,
		periods:   periods,
		directory: dir,
		policy:    pol,
		audit:     auditLog,
		fanout:    fanout,
		tx:        tx,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.Named("workflow"),
		now:       time.Now,
	}
}

// Create 人工创建任务，操作者即发起人
func (u *Usecase) Create(ctx context.Context, actorID uint64, in CreateInput) (*TaskView, error) {
	var view *TaskView
	err := u.tx.Execute(ctx, func(ctx context.Context) error {
		pr, err := u.principal(ctx, actorID)
		if err != nil {
			return err
		}
		t, err := u.buildTask(ctx, actorID, in)
		if err != nil {
			return err
		}
		if err := u.create(ctx, t, actorID, audit.RawBody(in)); err != nil {
			return err
		}
		view = u.view(*pr, t, nil)
		return nil
	})
	u.metrics.Transition("create", err)
	return view, err
}

// CreateGenerated 周期任务引擎的创建入口，系统作为操作者
func (u *Usecase) CreateGenerated(ctx context.Context, t *task.Task) error {
	if t.Status == "" {
		t.Status = status.InProgress
	}
	return u.create(ctx, t, 0, nil)
}

func (u *Usecase) buildTask(ctx context.Context, actorID uint64, in CreateInput) (*task.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required", "title")
	}
	if in.ExecutorRoleID == 0 {
		return nil, invalid("executor_role_id is required", "executor_role_id")
	}
	if in.PeriodID == 0 {
		return nil, invalid("period_id is required", "period_id")
	}

	role, err := u.directory.GetRole(ctx, in.ExecutorRoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	if role == nil {
		return nil, invalid("executor role does not exist", "executor_role_id")
	}
	per, err := u.periods.GetByID(ctx, in.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if per == nil {
		return nil, invalid("period does not exist", "period_id")
	}

	scope := task.Scope{Kind: u.cfg.DefaultScope}
	if in.Scope != nil {
		scope = *in.Scope
	}
	if !scope.Kind.Valid() {
		return nil, invalid("unknown assignment scope", "scope")
	}
	if scope.Kind.NeedsRef() && scope.RefID == nil {
		return nil, invalid("scope requires a reference id", "scope_ref_id")
	}
	if scope.Kind.IsUnitBased() && scope.RefID != nil {
		path, err := u.directory.UnitPath(ctx, *scope.RefID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve unit path: %w", err)
		}
		scope.UnitPath = path
	}

	return &task.Task{
		PeriodID:       per.ID,
		Title:          title,
		Description:    in.Description,
		InitiatorID:    actorID,
		ExecutorRoleID: in.ExecutorRoleID,
		ApproverRoleID: in.ApproverRoleID,
		Scope:          scope,
		Status:         status.InProgress,
		DueDate:        in.DueDate,
	}, nil
}

func (u *Usecase) create(ctx context.Context, t *task.Task, actorID uint64, body []byte) error {
	if err := u.tasks.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	payload := event.Payload{TaskID: t.ID, Title: t.Title, ToStatus: t.Status.String()}
	auditID, err := u.audit.Append(ctx, audit.Entry{
		TaskID:       t.ID,
		ActorID:      actorID,
		Action:       audit.ActionCreate,
		Diff:         audit.Diff(task.Task{}, *t),
		RequestBody:  body,
		EventType:    lo.ToPtr(event.TypeTaskCreated.String()),
		EventPayload: audit.RawBody(payload),
	})
	if err != nil {
		return err
	}
	if _, err := u.fanout.CreateEvent(ctx, event.Input{
		Task:    t,
		Type:    event.TypeTaskCreated,
		ActorID: actorID,
		AuditID: auditID,
		Payload: payload,
	}); err != nil {
		return err
	}
	u.logger.Info("task created",
		zap.Uint64("task_id", t.ID),
		zap.Uint64("initiator_id", t.InitiatorID),
		zap.Uint64("executor_role_id", t.ExecutorRoleID))
	return nil
}

func (u *Usecase) Get(ctx context.Context, actorID, taskID uint64) (*TaskView, error) {
	pr, err := u.principal(ctx, actorID)
	if err != nil {
		return nil, err
	}
	snap, err := u.snapshot(ctx, taskID, false)
	if err != nil {
		return nil, err
	}
	if !u.policy.CanView(*pr, snap) {
		return nil, notFound(taskID)
	}
	return u.view(*pr, snap.Task, snap.Report), nil
}

// Patch 只在初始状态且尚无报告时允许修改
func (u *Usecase) Patch(ctx context.Context, actorID, taskID uint64, in PatchInput) (*TaskView, error) {
	return u.mutate(ctx, "patch", actorID, taskID, func(ctx context.Context, pr directory.Principal, snap *policy.Snapshot) error {
		t := snap.Task
		if !lo.Contains(task.PatchableStatuses, t.Status) || snap.Report != nil {
			return task.ConflictStatus(errs.CodeTaskConflictPatch, "patch", t.Status, task.PatchableStatuses).
				WithDetail("has_report", snap.Report != nil)
		}
		if !u.policy.IsInitiator(pr, t) && !u.policy.IsPrivileged(pr.RoleID) {
			return errs.Forbidden(errs.CodeTaskForbiddenInitiator, "only the initiator may edit the task")
		}
		if in.IsEmpty() {
			return invalid("nothing to update", "body")
		}

		patch := task.NewTaskPatch()
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return invalid("title must not be empty", "title")
			}
			patch.WithTitle(title)
		}
		if in.Description != nil {
			patch.WithDescription(*in.Description)
		}
		if in.DueDate != nil {
			patch.WithDueDate(*in.DueDate)
		}
		if err := u.tasks.Update(ctx, t.ID, patch); err != nil {
			return fmt.Errorf("failed to patch task: %w", err)
		}
		before := t.Apply(patch)
		_, err := u.audit.Append(ctx, audit.Entry{
			TaskID:      t.ID,
			ActorID:     pr.UserID,
			Action:      audit.ActionPatch,
			Diff:        audit.Diff(before, *t),
			RequestBody: audit.RawBody(in),
		})
		return err
	})
}

// Report 提交或覆盖报告，任务进入待审批
func (u *Usecase) Report(ctx context.Context, actorID, taskID uint64, in ReportInput) (*TaskView, error) {
	return u.mutate(ctx, task.ActionReport.String(), actorID, taskID, func(ctx context.Context, pr directory.Principal, snap *policy.Snapshot) error {
		t := snap.Task
		to, err := task.CheckTransition(task.ActionReport, t.Status)
		if err != nil {
			return err
		}
		if !u.policy.CanReportOrUpdate(pr, *snap) {
			return errs.Forbidden(errs.CodeTaskForbiddenExecutor, "only the executor role may report on this task").
				WithReason("your role does not match the task executor role").
				WithDetail("executor_role_id", t.ExecutorRoleID)
		}
		link := strings.TrimSpace(in.Link)
		if link == "" {
			return errs.Validation(errs.CodeTaskReportLinkRequired, "report_link is required").
				WithHint("attach a link to the deliverable")
		}

		report := &task.Report{
			TaskID:      t.ID,
			SubmittedBy: pr.UserID,
			Link:        link,
			Comment:     in.Comment,
			SubmittedAt: u.now(),
		}
		if err := u.tasks.UpsertReport(ctx, report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		snap.Report = report

		return u.advance(ctx, pr, t, task.ActionReport, to, audit.ActionReport, audit.RawBody(in), event.Payload{
			ReportLink:     report.Link,
			ReportAuthorID: report.SubmittedBy,
			Comment:        report.Comment,
		})
	})
}

// Decide 审批通过或驳回
func (u *Usecase) Decide(ctx context.Context, actorID, taskID uint64, in DecisionInput) (*TaskView, error) {
	action := task.ActionReject
	if in.Approve {
		action = task.ActionApprove
	}
	return u.mutate(ctx, action.String(), actorID, taskID, func(ctx context.Context, pr directory.Principal, snap *policy.Snapshot) error {
		t := snap.Task
		to, err := task.CheckTransition(action, t.Status)
		if err != nil {
			return err
		}
		if snap.Report == nil {
			return errs.Conflict(errs.CodeTaskConflictNoReport, "task has no report to review").
				WithDetail("current_status", t.Status.String())
		}
		if u.policy.IsSelfApproval(pr, *snap) {
			return errs.Forbidden(errs.CodeTaskForbiddenSelfApp, "you cannot review your own report")
		}
		if !u.policy.IsApprover(pr, *snap) {
			return errs.Forbidden(errs.CodeTaskForbiddenApprover, "you are not an approver of this task").
				WithReason(fmt.Sprintf("approver mode is %s", u.policy.Config().ApproverMode))
		}

		report := snap.Report
		if action == task.ActionApprove {
			now := u.now()
			report.ApprovedAt = &now
			report.ApprovedBy = lo.ToPtr(pr.UserID)
		} else {
			report.ApprovedAt = nil
			report.ApprovedBy = nil
		}
		if err := u.tasks.SetReportApproval(ctx, t.ID, report.ApprovedAt, report.ApprovedBy); err != nil {
			return fmt.Errorf("failed to update report approval: %w", err)
		}

		auditAction := audit.ActionReject
		if action == task.ActionApprove {
			auditAction = audit.ActionApprove
		}
		return u.advance(ctx, pr, t, action, to, auditAction, audit.RawBody(in), event.Payload{
			ReportLink:     report.Link,
			ReportAuthorID: report.SubmittedBy,
			Comment:        in.Comment,
		})
	})
}

// Archive 仅发起人可归档，不产生事件
func (u *Usecase) Archive(ctx context.Context, actorID, taskID uint64) error {
	_, err := u.mutate(ctx, task.ActionArchive.String(), actorID, taskID, func(ctx context.Context, pr directory.Principal, snap *policy.Snapshot) error {
		t := snap.Task
		to, err := task.CheckTransition(task.ActionArchive, t.Status)
		if err != nil {
			return err
		}
		if !u.policy.IsInitiator(pr, t) {
			return errs.Forbidden(errs.CodeTaskForbiddenInitiator, "only the initiator may archive the task")
		}
		return u.advance(ctx, pr, t, task.ActionArchive, to, audit.ActionArchive, nil, event.Payload{})
	})
	return err
}

// ListEvents 当前用户的事件，按审计ID升序，排除已归档任务
func (u *Usecase) ListEvents(ctx context.Context, actorID uint64, in ListEventsInput) ([]*event.Event, error) {
	if _, err := u.principal(ctx, actorID); err != nil {
		return nil, err
	}
	filter := event.ListFilter{UserID: actorID, Cursor: in.Cursor, Limit: in.Limit}
	if in.Type != "" {
		typ := event.Type(strings.ToUpper(in.Type))
		if !lo.Contains([]event.Type{event.TypeTaskCreated, event.TypeReportSubmitted, event.TypeApproved, event.TypeRejected}, typ) {
			return nil, invalid("unknown event type", "event_type")
		}
		filter.Type = &typ
	}
	return u.fanout.ListForUser(ctx, filter)
}

type mutation func(ctx context.Context, pr directory.Principal, snap *policy.Snapshot) error

// mutate 锁定任务行后执行变更；不可见的任务与不存在的任务一样返回 404
func (u *Usecase) mutate(ctx context.Context, op string, actorID, taskID uint64, fn mutation) (*TaskView, error) {
	var view *TaskView
	err := u.tx.Execute(ctx, func(ctx context.Context) error {
		pr, err := u.principal(ctx, actorID)
		if err != nil {
			return err
		}
		snap, err := u.snapshot(ctx, taskID, true)
		if err != nil {
			return err
		}
		if !u.policy.CanView(*pr, snap) {
			return notFound(taskID)
		}
		if err := fn(ctx, *pr, &snap); err != nil {
			return err
		}
		view = u.view(*pr, snap.Task, snap.Report)
		return nil
	})
	u.metrics.Transition(op, err)
	if err != nil {
		if errs.KindOf(err) == "" {
			u.logger.Error("task operation failed", zap.String("op", op), zap.Uint64("task_id", taskID), zap.Error(err))
		}
		return nil, err
	}
	return view, nil
}

// advance 写状态、审计，再按需分发事件
func (u *Usecase) advance(ctx context.Context, pr directory.Principal, t *task.Task, action task.Action, to status.Code, auditAction string, body []byte, payload event.Payload) error {
	patch := task.NewTaskPatch().WithStatus(to)
	if err := u.tasks.Update(ctx, t.ID, patch); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	before := t.Apply(patch)
	payload.TaskID = t.ID
	payload.Title = t.Title
	payload.FromStatus = before.Status.String()
	payload.ToStatus = to.String()

	entry := audit.Entry{
		TaskID:      t.ID,
		ActorID:     pr.UserID,
		Action:      auditAction,
		Diff:        audit.Diff(before, *t),
		RequestBody: body,
	}
	evType, emits := eventFor(action)
	if emits {
		entry.EventType = lo.ToPtr(evType.String())
		entry.EventPayload = audit.RawBody(payload)
	}
	auditID, err := u.audit.Append(ctx, entry)
	if err != nil {
		return err
	}
	if emits {
		if _, err := u.fanout.CreateEvent(ctx, event.Input{
			Task:    t,
			Type:    evType,
			ActorID: pr.UserID,
			AuditID: auditID,
			Payload: payload,
		}); err != nil {
			return err
		}
	}
	u.logger.Info("task transitioned",
		zap.Uint64("task_id", t.ID),
		zap.Uint64("actor_id", pr.UserID),
		zap.String("action", action.String()),
		zap.String("from", before.Status.String()),
		zap.String("to", to.String()))
	return nil
}

func (u *Usecase) principal(ctx context.Context, actorID uint64) (*directory.Principal, error) {
	pr, err := u.directory.Principal(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	if pr == nil {
		return nil, errs.Forbidden(errs.CodeUserNotFound, "user is unknown or inactive").WithDetail("user_id", actorID)
	}
	return pr, nil
}

func (u *Usecase) snapshot(ctx context.Context, taskID uint64, lock bool) (policy.Snapshot, error) {
	var (
		t   *task.Task
		err error
	)
	if lock {
		t, err = u.tasks.GetForUpdate(ctx, taskID)
	} else {
		t, err = u.tasks.GetByID(ctx, taskID)
	}
	if err != nil {
		return policy.Snapshot{}, fmt.Errorf("failed to load task: %w", err)
	}
	if t == nil {
		return policy.Snapshot{}, notFound(taskID)
	}
	report, err := u.tasks.GetReport(ctx, taskID)
	if err != nil {
		return policy.Snapshot{}, fmt.Errorf("failed to load report: %w", err)
	}
	return policy.Snapshot{Task: t, Report: report}, nil
}

func (u *Usecase) view(pr directory.Principal, t *task.Task, r *task.Report) *TaskView {
	return &TaskView{
		Task:           t,
		Report:         r,
		AllowedActions: u.policy.AllowedActions(pr, policy.Snapshot{Task: t, Report: r}),
	}
}

func notFound(taskID uint64) error {
	return errs.NotFound(errs.CodeTaskNotFound, "task not found").WithDetail("task_id", taskID)
}

func invalid(message, field string) error {
	return errs.Validation(errs.CodeTaskInvalidInput, message).WithDetail("field", field)
}
