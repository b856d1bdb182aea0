package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
	opts  recurring.RunOptions
}

func (f *fakeRunner) Run(_ context.Context, opts recurring.RunOptions) (*recurring.RunResult, error) {
	f.calls.Add(1)
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &recurring.RunResult{RunID: 1, Status: recurring.RunOK}, nil
}

func newTestScheduler(t *testing.T, rc config.RecurringConfig, runner Runner) *Scheduler {
	t.Helper()
	s, err := New(config.Config{Recurring: rc}, runner, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	s := newTestScheduler(t, config.RecurringConfig{Enabled: true, Cron: "not a cron"}, &fakeRunner{})
	assert.Error(t, s.Start())
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(t, config.RecurringConfig{Enabled: false, Cron: "not a cron"}, runner)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Zero(t, runner.calls.Load())
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(t, config.RecurringConfig{Enabled: true, Cron: "0 */15 * * * *"}, &fakeRunner{})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestSchedulerInvalidTimezone(t *testing.T) {
	_, err := New(config.Config{Recurring: config.RecurringConfig{Timezone: "Mars/Olympus"}}, &fakeRunner{}, zap.NewNop())
	assert.Error(t, err)
}

func TestTriggerUsesDefaultOptions(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(t, config.RecurringConfig{Enabled: true}, runner)

	s.trigger()
	assert.EqualValues(t, 1, runner.calls.Load())
	assert.False(t, runner.opts.DryRun)
	assert.True(t, runner.opts.Date.IsAbsent())
}

func TestTriggerSwallowsErrors(t *testing.T) {
	runner := &fakeRunner{err: errs.Conflict(errs.CodeRunLocked, "busy")}
	s := newTestScheduler(t, config.RecurringConfig{Enabled: true}, runner)
	assert.NotPanics(t, s.trigger)

	runner.err = errors.New("db down")
	assert.NotPanics(t, s.trigger)
	assert.EqualValues(t, 2, runner.calls.Load())
}
