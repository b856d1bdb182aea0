package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/domain/txn"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var Provider = wire.NewSet(NewPublisher, NewDispatcherConfig, NewDispatcher)

type DispatcherConfig struct {
	Channel       string
	Interval      time.Duration
	BatchSize     int
	RatePerSecond float64
	MaxAttempts   int
}

func NewDispatcherConfig(cfg config.Config) DispatcherConfig {
	return DispatcherConfig{
		Channel:       cfg.Notify.ExternalChannel,
		Interval:      cfg.Notify.DispatchInterval,
		BatchSize:     cfg.Notify.BatchSize,
		RatePerSecond: cfg.Notify.RatePerSecond,
		MaxAttempts:   cfg.Notify.MaxAttempts,
	}
}

// Dispatcher 轮询外部通道的 PENDING 投递并发布。至少一次：发布成功但标记失败时会重发
type Dispatcher struct {
	repo      event.Repo
	tx        txn.Manager
	publisher Publisher
	limiter   *rate.Limiter
	breaker   *CircuitBreaker
	cfg       DispatcherConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now    func() time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(repo event.Repo, tx txn.Manager, publisher Publisher, cfg DispatcherConfig, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Dispatcher{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   NewCircuitBreaker(3, time.Minute),
		cfg:       cfg,
		metrics:   m,
		logger:    logger.Named("notify"),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	if d.publisher == nil || d.cfg.Channel == "" {
		d.logger.Info("notification dispatcher is disabled")
		return
	}
	d.wg.Add(1)
	go d.run()
	d.logger.Info("notification dispatcher started",
		zap.String("channel", d.cfg.Channel),
		zap.String("publisher", d.publisher.Name()),
		zap.Duration("interval", d.cfg.Interval))
}

func (d *Dispatcher) Stop() {
	if d.publisher == nil || d.cfg.Channel == "" {
		return
	}
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stopCh
		cancel()
	}()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("failed to dispatch notifications", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-d.stopCh:
			return
		}
	}
}

// DispatchOnce 处理一批待投递记录，返回成功发布的数量。
// 每条投递在自己的短事务里加锁、发布、标记，限流等待不占用事务
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	if d.publisher == nil {
		return 0, nil
	}
	batch, err := d.repo.ListPending(ctx, d.cfg.Channel, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending deliveries: %w", err)
	}
	d.metrics.PendingBatch(len(batch))

	sent := 0
	for _, pd := range batch {
		if err := d.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		var ok bool
		err := d.tx.Execute(ctx, func(ctx context.Context) error {
			locked, err := d.repo.LockPending(ctx, pd.Delivery.ID)
			if err != nil {
				return fmt.Errorf("failed to lock delivery %d: %w", pd.Delivery.ID, err)
			}
			if !locked {
				// 其他实例正在处理或已经处理完
				return nil
			}
			ok, err = d.deliver(ctx, pd)
			return err
		})
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
			continue
		}
		if d.breaker.State() == string(stateOpen) {
			d.logger.Warn("external channel unavailable, pausing dispatch",
				zap.String("channel", d.cfg.Channel))
			return sent, nil
		}
	}
	return sent, nil
}

// deliver 只有存储错误才返回 error，发布失败记在投递行上
func (d *Dispatcher) deliver(ctx context.Context, pd *event.PendingDelivery) (bool, error) {
	msg := NewMessage(pd, uuid.NewString(), d.now())
	pubErr := d.breaker.Call(func() error {
		return d.publisher.Publish(ctx, msg)
	})
	if errors.Is(pubErr, ErrBreakerOpen) {
		return false, nil
	}
	d.metrics.Delivery(d.cfg.Channel, pubErr)

	if pubErr != nil {
		d.logger.Warn("failed to publish notification",
			zap.Uint64("delivery_id", pd.Delivery.ID),
			zap.Uint64("event_id", pd.Delivery.EventID),
			zap.Int("attempts", pd.Delivery.Attempts+1),
			zap.Error(pubErr))
		if err := d.repo.MarkFailed(ctx, pd.Delivery.ID, pubErr.Error()); err != nil {
			return false, fmt.Errorf("failed to mark delivery %d failed: %w", pd.Delivery.ID, err)
		}
		return false, nil
	}

	if err := d.repo.MarkSent(ctx, pd.Delivery.ID, msg.MessageID, d.now()); err != nil {
		return false, fmt.Errorf("failed to mark delivery %d sent: %w", pd.Delivery.ID, err)
	}
	d.logger.Debug("notification published",
		zap.Uint64("delivery_id", pd.Delivery.ID),
		zap.String("message_id", msg.MessageID))
	return true, nil
}

// NewMessage 由投递记录和事件组装消息
func NewMessage(pd *event.PendingDelivery, messageID string, at time.Time) Message {
	ev := pd.Event
	return Message{
		MessageID:  messageID,
		DeliveryID: pd.Delivery.ID,
		EventID:    pd.Delivery.EventID,
		EventType:  ev.Type,
		TaskID:     ev.TaskID,
		UserID:     pd.Delivery.UserID,
		Channel:    pd.Delivery.Channel,
		ExternalID: pd.Delivery.ExternalID,
		Text:       Text(ev),
		Payload:    ev.Payload,
		Timestamp:  at.UnixMilli(),
	}
}

// Text 通知正文
func Text(ev event.Event) string {
	title := ev.Payload.Title
	switch ev.Type {
	case event.TypeTaskCreated:
		if ev.Payload.DueDate != "" {
			return fmt.Sprintf("New task #%d: %s (due %s)", ev.TaskID, title, ev.Payload.DueDate)
		}
		return fmt.Sprintf("New task #%d: %s", ev.TaskID, title)
	case event.TypeReportSubmitted:
		return fmt.Sprintf("Report submitted for task #%d: %s\n%s", ev.TaskID, title, ev.Payload.ReportLink)
	case event.TypeApproved:
		return fmt.Sprintf("Report approved for task #%d: %s", ev.TaskID, title)
	case event.TypeRejected:
		if ev.Payload.Comment != "" {
			return fmt.Sprintf("Report rejected for task #%d: %s\n%s", ev.TaskID, title, ev.Payload.Comment)
		}
		return fmt.Sprintf("Report rejected for task #%d: %s", ev.TaskID, title)
	}
	return fmt.Sprintf("Task #%d: %s", ev.TaskID, title)
}
