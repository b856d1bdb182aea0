package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

// Runner 周期任务引擎的入口
type Runner interface {
	Run(ctx context.Context, opts recurring.RunOptions) (*recurring.RunResult, error)
}

// Scheduler 按 cron 表达式定时触发周期任务引擎
type Scheduler struct {
	config config.RecurringConfig
	runner Runner
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New 创建调度器
func New(cfg config.Config, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	loc, err := cfg.Recurring.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid recurring timezone: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config: cfg.Recurring,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		logger: logger.Named("scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start 注册定时任务并启动 cron
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled {
		s.logger.Info("recurring scheduler is disabled")
		return nil
	}
	if s.started {
		return nil
	}
	if _, err := s.cron.AddFunc(s.config.Cron, s.trigger); err != nil {
		return fmt.Errorf("invalid recurring cron %q: %w", s.config.Cron, err)
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("recurring scheduler started", zap.String("cron", s.config.Cron))
	return nil
}

// Stop 停止调度并等待正在执行的运行结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("recurring scheduler stopped")
}

func (s *Scheduler) trigger() {
	res, err := s.runner.Run(s.ctx, recurring.RunOptions{})
	if err != nil {
		if errs.IsKind(err, errs.KindConflict) {
			s.logger.Info("recurring run skipped, another run holds the lock")
			return
		}
		s.logger.Error("recurring run failed", zap.Error(err))
		return
	}
	s.logger.Info("recurring run finished",
		zap.Uint64("run_id", res.RunID),
		zap.String("status", string(res.Status)),
		zap.Int("created", res.Stats.Created),
		zap.Int("deduped", res.Stats.Deduped),
		zap.Int("errors", res.Stats.Errors))
}
