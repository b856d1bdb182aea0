package recurring_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/biztest"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/internal/domain/txn/txntest"
	"github.com/taskflow/server/internal/metrics"
	"go.uber.org/zap"
)

const (
	roleAccountant uint64 = 10
	roleAuditor    uint64 = 11
	initiator      uint64 = 1
)

type creator struct {
	tasks *biztest.Tasks
}

func (c creator) CreateGenerated(ctx context.Context, t *task.Task) error {
	return c.tasks.Create(ctx, t)
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context) (bool, error) { return false, nil }
func (busyLocker) Unlock(context.Context) error          { return nil }
func (busyLocker) IsLocked() bool                        { return false }

type fixture struct {
	store  *biztest.Store
	engine *recurring.Engine
	clock  time.Time
}

func setup(t *testing.T, now time.Time, opts ...recurring.EngineOption) *fixture {
	t.Helper()
	store := biztest.NewStore()
	store.Directory.AddRole(roleAccountant, "Accountant")
	store.Directory.AddRole(roleAuditor, "Auditor")
	store.Directory.AddUser(initiator, 99, "")

	f := &fixture{store: store, clock: now}
	var seq uint64
	tx := &txntest.Direct{}
	base := []recurring.EngineOption{
		recurring.WithClock(func() time.Time { return f.clock }),
		recurring.WithIDGenerator(func() uint64 { seq++; return 1000 + seq }),
	}
	f.engine = recurring.NewEngine(
		store.Recurring,
		store.Tasks,
		period.NewResolver(store.Periods, tx),
		store.Directory,
		creator{tasks: store.Tasks},
		audit.NewLog(store.Audit),
		tx,
		recurring.EngineConfig{Location: time.UTC},
		metrics.NewNop(),
		zap.NewNop(),
		append(base, opts...)...,
	)
	return f
}

func monthlyTemplate() *recurring.Template {
	return &recurring.Template{
		Active:           true,
		Code:             "vat",
		Title:            "VAT return",
		ExecutorRoleID:   roleAccountant,
		InitiatorID:      initiator,
		ScheduleType:     period.Monthly,
		ScheduleParams:   json.RawMessage(`{"bymonthday":[15]}`),
		CreateOffsetDays: 5,
		DueOffsetDays:    3,
	}
}

func TestRunCreatesDueTask(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, recurring.RunOK, res.Status)
	assert.Equal(t, recurring.Stats{Scanned: 1, Due: 1, Created: 1}, res.Stats)

	tasks := f.store.Tasks.All()
	require.Len(t, tasks, 1)
	created := tasks[0]
	assert.Equal(t, "Prepare VAT return (Accountant) for September 2026", created.Title)
	assert.Equal(t, status.InProgress, created.Status)
	assert.Equal(t, initiator, created.InitiatorID)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), *created.DueDate)
	assert.Equal(t, task.ScopeFunctional, created.Scope.Kind)

	require.Len(t, f.store.Recurring.Runs, 1)
	assert.Equal(t, res.RunID, f.store.Recurring.Runs[0].ID)
	items, err := f.store.Recurring.ListItems(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, recurring.OutcomeCreated, items[0].Outcome)
	assert.Equal(t, created.ID, *items[0].TaskID)
	assert.Equal(t, "2026-10-15", items[0].Meta.TargetDate)
}

func TestRunNotDue(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 11, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())
	inactive := monthlyTemplate()
	inactive.Active = false
	f.store.Recurring.PutTemplate(inactive)

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, recurring.Stats{Scanned: 1}, res.Stats)
	assert.Empty(t, f.store.Tasks.All())
	require.Len(t, res.Items, 1)
	assert.Equal(t, recurring.OutcomeNotDue, res.Items[0].Outcome)
	assert.False(t, res.Items[0].Due)
}

func TestRunDedupsSecondRun(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())

	_, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Deduped)
	assert.Equal(t, 0, res.Stats.Created)
	assert.Len(t, f.store.Tasks.All(), 1)
	assert.Len(t, f.store.Periods.Items, 1)
	assert.NotEqual(t, f.store.Recurring.Runs[0].ID, f.store.Recurring.Runs[1].ID)
}

func TestRunDoesNotRecreateArchivedTask(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())
	ctx := context.Background()

	first, err := f.engine.Run(ctx, recurring.RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Stats.Created)
	created := f.store.Tasks.All()[0]
	require.NoError(t, f.store.Tasks.Update(ctx, created.ID, new(task.TaskPatch).WithStatus(status.Archived)))

	// 同一天的下一次定时触发
	f.clock = f.clock.Add(15 * time.Minute)
	res, err := f.engine.Run(ctx, recurring.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.Created)
	assert.Equal(t, 1, res.Stats.Deduped)
	assert.Len(t, f.store.Tasks.All(), 1)
	require.Len(t, res.Items, 1)
	assert.Equal(t, created.ID, *res.Items[0].TaskID)
	assert.Equal(t, first.RunID, res.Items[0].Meta.GeneratedInRun)
}

func TestRunRecreatesAfterReassigningBack(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	tpl := monthlyTemplate()
	f.store.Recurring.PutTemplate(tpl)
	ctx := context.Background()

	_, err := f.engine.Run(ctx, recurring.RunOptions{})
	require.NoError(t, err)
	tpl.ExecutorRoleID = roleAuditor
	_, err = f.engine.Run(ctx, recurring.RunOptions{})
	require.NoError(t, err)

	tpl.ExecutorRoleID = roleAccountant
	res, err := f.engine.Run(ctx, recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, 1, res.Stats.Archived)

	tasks := f.store.Tasks.All()
	require.Len(t, tasks, 3)
	assert.Equal(t, roleAccountant, tasks[2].ExecutorRoleID)
	assert.Equal(t, status.InProgress, tasks[2].Status)
}

func TestRunUpdatesDueDateOnDedup(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	tpl := monthlyTemplate()
	f.store.Recurring.PutTemplate(tpl)

	_, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)

	tpl.DueOffsetDays = 5
	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Deduped)
	assert.True(t, res.Items[0].Meta.DueDateUpdated)

	kept := f.store.Tasks.All()[0]
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), *kept.DueDate)
	assert.Equal(t, []string{audit.ActionUpdateDueDate}, f.store.Audit.Actions(kept.ID))
}

func TestRunArchivesOnExecutorReassignment(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	tpl := monthlyTemplate()
	f.store.Recurring.PutTemplate(tpl)

	_, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)

	tpl.ExecutorRoleID = roleAuditor
	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, 1, res.Stats.Archived)

	tasks := f.store.Tasks.All()
	require.Len(t, tasks, 2)
	assert.Equal(t, status.Archived, tasks[0].Status)
	assert.Equal(t, roleAuditor, tasks[1].ExecutorRoleID)
	assert.Equal(t, status.InProgress, tasks[1].Status)
	assert.Equal(t, "Prepare VAT return (Auditor) for September 2026", tasks[1].Title)
	assert.Equal(t, []string{audit.ActionArchiveReassign}, f.store.Audit.Actions(tasks[0].ID))
	assert.Equal(t, []uint64{tasks[0].ID}, res.Items[0].Meta.ArchivedTaskIDs)
}

func TestRunMalformedTemplateDoesNotAbort(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	broken := monthlyTemplate()
	broken.ScheduleParams = json.RawMessage(`{"bymonthday":[0]}`)
	f.store.Recurring.PutTemplate(broken)
	f.store.Recurring.PutTemplate(monthlyTemplate())

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, recurring.RunPartial, res.Status)
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Equal(t, 1, res.Stats.Created)
	require.Len(t, res.Errors, 1)

	items, err := f.store.Recurring.ListItems(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, recurring.OutcomeError, items[0].Outcome)
	assert.Equal(t, errs.CodeTemplateInvalid, items[0].Meta.ErrorCode)
	assert.Equal(t, recurring.OutcomeCreated, items[1].Outcome)
	assert.Equal(t, recurring.RunPartial, f.store.Recurring.Runs[0].Status)
}

func TestRunMissingRoleIsErrorItem(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	tpl := monthlyTemplate()
	tpl.ExecutorRoleID = 404
	f.store.Recurring.PutTemplate(tpl)

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Equal(t, 1, res.Stats.Scanned)
	assert.Equal(t, 0, res.Stats.Due, "failed templates are not counted as due")
	assert.Equal(t, errs.CodeTemplateMissingField, res.Items[0].Meta.ErrorCode)
}

func TestRunItemFailureIsSwallowed(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())
	f.store.Recurring.FailItems = assert.AnError

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, recurring.RunOK, res.Status)
}

func TestRunWeeklyOnMonday(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(&recurring.Template{
		Active:         true,
		Code:           "digest",
		ExecutorRoleID: roleAccountant,
		InitiatorID:    initiator,
		ScheduleType:   period.Weekly,
		ScheduleParams: json.RawMessage(`{"byweekday":["MO"]}`),
	})

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].Due)
	assert.Equal(t, 1, res.Stats.Created)

	require.Len(t, f.store.Periods.Items, 1)
	p := f.store.Periods.Items[0]
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, "Prepare digest (Accountant) for 12.10.2026-18.10.2026", f.store.Tasks.All()[0].Title)
}

func TestRunOverrides(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 11, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{Date: mo.Some(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, "Prepare VAT return (Accountant) for August 2026", f.store.Tasks.All()[0].Title)

	res, err = f.engine.Run(context.Background(), recurring.RunOptions{ForceDueAll: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Due)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, recurring.ReasonForced, res.Items[0].Meta.Reason)
}

func TestRunDryRun(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC))
	f.store.Recurring.PutTemplate(monthlyTemplate())

	res, err := f.engine.Run(context.Background(), recurring.RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Stats.Created)
}

func TestRunLocked(t *testing.T) {
	f := setup(t, time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC), recurring.WithLocker(busyLocker{}))

	_, err := f.engine.Run(context.Background(), recurring.RunOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConflict))
	be, _ := errs.As(err)
	assert.Equal(t, errs.CodeRunLocked, be.Code)
}

func TestTemplatesCreateValidates(t *testing.T) {
	store := biztest.NewStore()
	svc := recurring.NewTemplates(store.Recurring)

	bad := monthlyTemplate()
	bad.ExecutorRoleID = 0
	err := svc.Create(context.Background(), bad)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	bad = monthlyTemplate()
	bad.ScheduleParams = json.RawMessage(`{"byweekday":[1]}`)
	err = svc.Create(context.Background(), bad)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	ok := monthlyTemplate()
	require.NoError(t, svc.Create(context.Background(), ok))
	got, err := svc.Get(context.Background(), ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "vat", got.Code)

	_, err = svc.Get(context.Background(), 999)
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	list, err := svc.List(context.Background(), recurring.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
