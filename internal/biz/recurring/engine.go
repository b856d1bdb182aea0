package recurring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/internal/domain/txn"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/pkg/config"
	"github.com/yitter/idgenerator-go/idgen"
	"go.uber.org/zap"
)

// TaskCreator 任务创建原语，负责审计和 TASK_CREATED 事件
type TaskCreator interface {
	CreateGenerated(ctx context.Context, t *task.Task) error
}

type EngineConfig struct {
	Location     *time.Location
	DefaultScope task.ScopeKind
}

func NewEngineConfig(cfg config.Config) (EngineConfig, error) {
	loc, err := cfg.Recurring.Location()
	if err != nil {
		return EngineConfig{}, err
	}
	return EngineConfig{Location: loc, DefaultScope: task.ScopeKind(cfg.Recurring.DefaultScope)}, nil
}

// RunOptions 运维补跑用的开关，默认全部关闭
type RunOptions struct {
	Date           mo.Option[time.Time]
	DryRun         bool
	IgnoreTimeGate bool
	ForceDueAll    bool
}

type RunResult struct {
	RunID  uint64
	Status RunStatus
	DryRun bool
	Date   time.Time
	Stats  Stats
	Errors []string
	Items  []*RunItem
}

// errDryRun 让外层事务回滚
var errDryRun = errors.New("dry run rollback")

type Engine struct {
	repo      Repo
	tasks     task.Repo
	periods   *period.Resolver
	directory directory.Repo
	creator   TaskCreator
	audit     *audit.Log
	tx        txn.Manager
	locker    txn.Locker
	cfg       EngineConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() uint64
}

type EngineOption func(*Engine)

// WithClock 测试用
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(fn func() uint64) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

// WithLocker 跨实例的运行锁，未设置时只做进程内互斥
func WithLocker(l txn.Locker) EngineOption {
	return func(e *Engine) { e.locker = l }
}

func NewEngine(
	repo Repo,
	tasks task.Repo,
	periods *period.Resolver,
	dir directory.Repo,
	creator TaskCreator,
	auditLog *audit.Log,
	tx txn.Manager,
	cfg EngineConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DefaultScope == "" {
		cfg.DefaultScope = task.ScopeFunctional
	}
	e := &Engine{
		repo:      repo,
		tasks:     tasks,
		periods:   periods,
		directory: dir,
		creator:   creator,
		audit:     auditLog,
		tx:        tx,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.Named("recurring"),
		now:       time.Now,
		newID:     func() uint64 { return uint64(idgen.NextId()) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run 扫描全部启用的模板。单个模板的失败记为 error 明细，不会中断整次运行
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !e.mu.TryLock() {
		return nil, errs.Conflict(errs.CodeRunLocked, "a recurring run is already in progress")
	}
	defer e.mu.Unlock()

	if e.locker != nil {
		ok, err := e.locker.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !ok {
			return nil, errs.Conflict(errs.CodeRunLocked, "a recurring run is already in progress").
				WithCause(errs.ErrNotLeader).
				WithHint("retry after the current run finishes")
		}
		defer func() {
			if err := e.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Error("failed to release run lock", zap.Error(err))
			}
		}()
	}

	startedAt := e.now()
	now := startedAt.In(e.cfg.Location)
	run := &Run{
		ID:            e.newID(),
		StartedAt:     startedAt,
		EffectiveDate: period.DateOf(opts.Date.OrElse(now)),
		DryRun:        opts.DryRun,
		Forced:        opts.ForceDueAll || opts.IgnoreTimeGate || opts.Date.IsPresent(),
	}
	var items []*RunItem

	body := func(ctx context.Context) error {
		templates, err := e.repo.ListTemplates(ctx, TemplateFilter{ActiveOnly: true})
		if err != nil {
			return fmt.Errorf("failed to list templates: %w", err)
		}
		for _, tpl := range templates {
			items = append(items, e.processTemplate(ctx, run, tpl, now, opts))
		}
		run.FinishedAt = e.now()
		run.Status = RunOK
		if run.Stats.Errors > 0 {
			run.Status = RunPartial
		}
		if err := e.repo.InsertRun(ctx, run); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		return nil
	}

	if opts.DryRun {
		err := e.tx.Execute(ctx, func(ctx context.Context) error {
			if err := body(ctx); err != nil {
				return err
			}
			return errDryRun
		})
		if !errors.Is(err, errDryRun) {
			return nil, err
		}
		if ce := e.logger.Check(zap.DebugLevel, "dry run plan"); ce != nil {
			ce.Write(zap.String("plan", spew.Sdump(items)))
		}
	} else if err := body(ctx); err != nil {
		return nil, err
	}

	e.metrics.RunFinished(string(run.Status), run.DryRun, run.FinishedAt.Sub(run.StartedAt))
	e.logger.Info("recurring run finished",
		zap.Uint64("run_id", run.ID),
		zap.String("date", run.EffectiveDate.Format(time.DateOnly)),
		zap.Bool("dry_run", run.DryRun),
		zap.String("status", string(run.Status)),
		zap.Int("scanned", run.Stats.Scanned),
		zap.Int("due", run.Stats.Due),
		zap.Int("created", run.Stats.Created),
		zap.Int("deduped", run.Stats.Deduped),
		zap.Int("errors", run.Stats.Errors))

	return &RunResult{
		RunID:  run.ID,
		Status: run.Status,
		DryRun: run.DryRun,
		Date:   run.EffectiveDate,
		Stats:  run.Stats,
		Errors: run.Errors,
		Items:  items,
	}, nil
}

// processTemplate 模板在自己的事务里处理；失败时回滚并在新事务里记录 error 明细
func (e *Engine) processTemplate(ctx context.Context, run *Run, tpl *Template, now time.Time, opts RunOptions) *RunItem {
	run.Stats.Scanned++
	item := &RunItem{RunID: run.ID, TemplateID: tpl.ID, Meta: ItemMeta{Forced: opts.ForceDueAll}}

	var archived int
	err := e.tx.Execute(ctx, func(ctx context.Context) error {
		n, err := e.generate(ctx, tpl, run.EffectiveDate, now, opts, item)
		if err != nil {
			return err
		}
		archived = n
		e.recordItem(ctx, item)
		return nil
	})
	if err != nil {
		run.Stats.Errors++
		run.Errors = append(run.Errors, fmt.Sprintf("template %d: %v", tpl.ID, err))
		item.Outcome = OutcomeError
		item.TaskID = nil
		item.Message = err.Error()
		if be, ok := errs.As(err); ok {
			item.Meta.ErrorCode = be.Code
		}
		e.logger.Warn("template processing failed", zap.Uint64("template_id", tpl.ID), zap.Error(err))
		e.recordItem(ctx, item)
		e.metrics.RunItem(string(item.Outcome))
		return item
	}

	if item.Due {
		run.Stats.Due++
	}
	switch item.Outcome {
	case OutcomeCreated:
		run.Stats.Created++
	case OutcomeDeduped:
		run.Stats.Deduped++
	}
	run.Stats.Archived += archived
	e.metrics.RunItem(string(item.Outcome))
	return item
}

// recordItem 明细写在保存点里，写入失败不影响模板处理结果
func (e *Engine) recordItem(ctx context.Context, item *RunItem) {
	item.CreatedAt = e.now()
	err := e.tx.Execute(ctx, func(ctx context.Context) error {
		return e.repo.InsertItem(ctx, item)
	})
	if err != nil {
		e.logger.Error("failed to record run item",
			zap.Uint64("run_id", item.RunID),
			zap.Uint64("template_id", item.TemplateID),
			zap.Error(err))
	}
}

// generate 到期判定、周期解析、去重和创建。返回因执行角色变更而归档的任务数
func (e *Engine) generate(ctx context.Context, tpl *Template, today, now time.Time, opts RunOptions, item *RunItem) (int, error) {
	if err := tpl.Validate(); err != nil {
		return 0, err
	}
	sched, err := ParseSchedule(tpl.ScheduleType, tpl.ScheduleParams)
	if err != nil {
		return 0, err
	}

	check := DueCheck(sched, today, now, tpl.CreateOffsetDays, opts.IgnoreTimeGate)
	if opts.ForceDueAll && !check.Due {
		check.Due = true
		check.Reason = ReasonForced
	}
	item.Due = check.Due
	item.Meta.Reason = check.Reason
	if !check.Target.IsZero() {
		item.Meta.TargetDate = check.Target.Format(time.DateOnly)
	}
	if !check.Due {
		item.Outcome = OutcomeNotDue
		return 0, nil
	}

	per, err := e.periods.Resolve(ctx, tpl.ScheduleType, today)
	if err != nil {
		return 0, err
	}
	item.PeriodID = lo.ToPtr(per.ID)
	item.Meta.PeriodLabel = per.Label

	scope, err := e.resolveScope(ctx, tpl)
	if err != nil {
		return 0, err
	}
	role, err := e.directory.GetRole(ctx, tpl.ExecutorRoleID)
	if err != nil {
		return 0, fmt.Errorf("failed to load executor role: %w", err)
	}
	if role == nil {
		return 0, errs.Configuration(errs.CodeTemplateMissingField, "executor role does not exist").
			WithDetail("executor_role_id", tpl.ExecutorRoleID)
	}

	dueDate := check.DueDate(tpl.DueOffsetDays)
	item.Meta.DueDate = dueDate.Format(time.DateOnly)
	item.Meta.ExecutorRoleID = tpl.ExecutorRoleID

	existing, err := e.tasks.FindActiveByTemplate(ctx, task.TemplateTaskFilter{
		TemplateID: tpl.ID,
		PeriodID:   per.ID,
		Scope:      scope,
	}, true)
	if err != nil {
		return 0, fmt.Errorf("failed to lock existing tasks: %w", err)
	}

	same, others := lo.FilterReject(existing, func(t *task.Task, _ int) bool {
		return t.ExecutorRoleID == tpl.ExecutorRoleID
	})
	if len(same) > 0 {
		kept := same[0]
		item.Outcome = OutcomeDeduped
		item.TaskID = lo.ToPtr(kept.ID)
		if kept.DueDate == nil || !kept.DueDate.Equal(dueDate) {
			if err := e.updateDueDate(ctx, kept, dueDate); err != nil {
				return 0, err
			}
			item.Meta.DueDateUpdated = true
		}
		return 0, nil
	}

	// 已生成过的任务被人工归档后，本周期不再重建；执行角色变更后才重新生成
	prior, err := e.repo.LatestCreated(ctx, tpl.ID, per.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load generated item: %w", err)
	}
	if prior != nil && prior.Meta.ExecutorRoleID == tpl.ExecutorRoleID && len(others) == 0 {
		item.Outcome = OutcomeDeduped
		item.TaskID = prior.TaskID
		item.Meta.GeneratedInRun = prior.RunID
		return 0, nil
	}

	for _, old := range others {
		if err := e.archiveReassigned(ctx, old, tpl.ExecutorRoleID); err != nil {
			return 0, err
		}
		item.Meta.ArchivedTaskIDs = append(item.Meta.ArchivedTaskIDs, old.ID)
	}

	t := &task.Task{
		TemplateID:     lo.ToPtr(tpl.ID),
		PeriodID:       per.ID,
		Title:          ComposeTitle(tpl, role.Name, per.Label),
		Description:    tpl.Description,
		InitiatorID:    tpl.InitiatorID,
		ExecutorRoleID: tpl.ExecutorRoleID,
		ApproverRoleID: tpl.ApproverRoleID,
		Scope:          scope,
		Status:         status.InProgress,
		DueDate:        lo.ToPtr(dueDate),
	}
	if err := e.creator.CreateGenerated(ctx, t); err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	item.Outcome = OutcomeCreated
	item.TaskID = lo.ToPtr(t.ID)
	return len(others), nil
}

func (e *Engine) resolveScope(ctx context.Context, tpl *Template) (task.Scope, error) {
	scope := tpl.Scope
	if scope.Kind == "" {
		scope.Kind = e.cfg.DefaultScope
	}
	if scope.Kind.IsUnitBased() && scope.RefID != nil && scope.UnitPath == "" {
		path, err := e.directory.UnitPath(ctx, *scope.RefID)
		if err != nil {
			return task.Scope{}, fmt.Errorf("failed to resolve unit path: %w", err)
		}
		scope.UnitPath = path
	}
	return scope, nil
}

func (e *Engine) updateDueDate(ctx context.Context, t *task.Task, dueDate time.Time) error {
	patch := task.NewTaskPatch().WithDueDate(dueDate)
	if err := e.tasks.Update(ctx, t.ID, patch); err != nil {
		return fmt.Errorf("failed to update due date: %w", err)
	}
	before := t.Apply(patch)
	_, err := e.audit.Append(ctx, audit.Entry{
		TaskID: t.ID,
		Action: audit.ActionUpdateDueDate,
		Diff:   audit.Diff(before, *t),
	})
	return err
}

// archiveReassigned 模板换了执行角色，旧任务归档，由系统操作
func (e *Engine) archiveReassigned(ctx context.Context, t *task.Task, newRoleID uint64) error {
	patch := task.NewTaskPatch().WithStatus(status.Archived)
	if err := e.tasks.Update(ctx, t.ID, patch); err != nil {
		return fmt.Errorf("failed to archive task %d: %w", t.ID, err)
	}
	before := t.Apply(patch)
	_, err := e.audit.Append(ctx, audit.Entry{
		TaskID:      t.ID,
		Action:      audit.ActionArchiveReassign,
		Diff:        audit.Diff(before, *t),
		RequestBody: audit.RawBody(map[string]uint64{"new_executor_role_id": newRoleID}),
	})
	if err != nil {
		return err
	}
	e.logger.Info("archived task after executor reassignment",
		zap.Uint64("task_id", t.ID),
		zap.Uint64("old_role_id", before.ExecutorRoleID),
		zap.Uint64("new_role_id", newRoleID))
	return nil
}
