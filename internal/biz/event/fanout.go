package event

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/wire"
	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/txn"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

var Provider = wire.NewSet(NewConfig, NewFanout)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Config 事件分发配置，由调用方注入
type Config struct {
	PrivilegedRoleIDs []uint64
	// NotifiableTypes 需要推送到外部通道的事件类型
	NotifiableTypes []Type
	ExternalChannel string
	// AllowList 非空时外部通道只投递给名单内用户
	AllowList []uint64
	// DropSelf 这些类型的事件不通知操作者本人
	DropSelf []Type
}

func NewConfig(cfg config.Config) Config {
	toTypes := func(items []string) []Type {
		return lo.Map(items, func(s string, _ int) Type { return Type(s) })
	}
	return Config{
		PrivilegedRoleIDs: cfg.RBAC.PrivilegedRoleIDs,
		NotifiableTypes:   toTypes(cfg.Notify.NotifiableEvents),
		ExternalChannel:   cfg.Notify.ExternalChannel,
		AllowList:         cfg.Notify.AllowListUserIDs,
		DropSelf:          toTypes(cfg.Notify.DropSelfEvents),
	}
}

func (c Config) IsNotifiable(t Type) bool {
	return c.ExternalChannel != "" && lo.Contains(c.NotifiableTypes, t)
}

// Input 创建事件的参数。AuditID 是同一事务内刚写入的审计行
type Input struct {
	Task    *task.Task
	Type    Type
	ActorID uint64
	AuditID uint64
	Payload Payload
}

type Fanout struct {
	repo      Repo
	directory directory.Repo
	tasks     task.Repo
	tx        txn.Manager
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewFanout(repo Repo, dir directory.Repo, tasks task.Repo, tx txn.Manager, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Fanout {
	return &Fanout{
		repo:      repo,
		directory: dir,
		tasks:     tasks,
		tx:        tx,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.Named("event-fanout"),
		now:       time.Now,
	}
}

// ResolveRecipients 计算通知受众，结果去重并升序
func (f *Fanout) ResolveRecipients(ctx context.Context, t *task.Task, typ Type, actorID uint64, payload Payload) ([]uint64, error) {
	var users []uint64
	if !payload.Bindings.IsEmpty() {
		users = append(users, payload.Bindings.UserIDs...)
		if len(payload.Bindings.RoleIDs) > 0 {
			bound, err := f.directory.ActiveUserIDsByRoles(ctx, payload.Bindings.RoleIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve bound roles: %w", err)
			}
			users = append(users, bound...)
		}
	} else {
		users = append(users, t.InitiatorID)
		roles := append([]uint64{t.ExecutorRoleID}, f.cfg.PrivilegedRoleIDs...)
		members, err := f.directory.ActiveUserIDsByRoles(ctx, lo.Uniq(roles))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role members: %w", err)
		}
		users = append(users, members...)
	}

	// 审批结果总是通知报告作者
	if typ.IsOutcome() && payload.ReportAuthorID != 0 {
		users = append(users, payload.ReportAuthorID)
	}

	if actorID != 0 && lo.Contains(f.cfg.DropSelf, typ) {
		users = lo.Without(users, actorID)
	}

	users = lo.Uniq(lo.Without(users, 0))
	slices.Sort(users)
	return users, nil
}

// CreateEvent 写入事件、收件人和投递记录，必须在调用方的事务中执行
func (f *Fanout) CreateEvent(ctx context.Context, in Input) (*Event, error) {
	if in.Task == nil || in.Task.ID == 0 {
		return nil, fmt.Errorf("event requires a persisted task")
	}
	payload := in.Payload
	payload.TaskID = in.Task.ID
	if payload.Title == "" {
		payload.Title = in.Task.Title
	}
	if payload.DueDate == "" && in.Task.DueDate != nil {
		payload.DueDate = in.Task.DueDate.Format(time.DateOnly)
	}
	f.enrich(ctx, in.Type, &payload)

	ev := &Event{
		CreatedAt: f.now(),
		TaskID:    in.Task.ID,
		AuditID:   in.AuditID,
		Type:      in.Type,
		ActorID:   in.ActorID,
		Payload:   payload,
	}
	if err := f.repo.InsertEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	recipients, err := f.ResolveRecipients(ctx, in.Task, in.Type, in.ActorID, payload)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		f.logger.Warn("event has no recipients", zap.Uint64("event_id", ev.ID), zap.String("type", ev.Type.String()))
		f.metrics.EventCreated(ev.Type.String())
		return ev, nil
	}
	if err := f.repo.InsertRecipients(ctx, ev.ID, recipients); err != nil {
		return nil, fmt.Errorf("failed to insert event recipients: %w", err)
	}

	deliveredAt := ev.CreatedAt
	system := lo.Map(recipients, func(userID uint64, _ int) *Delivery {
		return &Delivery{
			EventID:     ev.ID,
			UserID:      userID,
			Channel:     ChannelSystem,
			Status:      DeliverySent,
			DeliveredAt: &deliveredAt,
		}
	})
	if err := f.repo.InsertDeliveries(ctx, system); err != nil {
		return nil, fmt.Errorf("failed to insert system deliveries: %w", err)
	}

	if f.cfg.IsNotifiable(ev.Type) {
		f.populateExternal(ctx, ev, recipients)
	}

	f.metrics.EventCreated(ev.Type.String())
	f.logger.Debug("event created",
		zap.Uint64("event_id", ev.ID),
		zap.Uint64("task_id", ev.TaskID),
		zap.String("type", ev.Type.String()),
		zap.Int("recipients", len(recipients)))
	return ev, nil
}

// enrich 补充最新报告信息，失败只记录日志
func (f *Fanout) enrich(ctx context.Context, typ Type, payload *Payload) {
	if typ == TypeTaskCreated || (payload.ReportLink != "" && payload.ReportAuthorID != 0) {
		return
	}
	err := f.tx.Execute(ctx, func(ctx context.Context) error {
		report, err := f.tasks.GetReport(ctx, payload.TaskID)
		if err != nil {
			return err
		}
		if report == nil {
			return nil
		}
		if payload.ReportLink == "" {
			payload.ReportLink = report.Link
		}
		if payload.ReportAuthorID == 0 {
			payload.ReportAuthorID = report.SubmittedBy
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("failed to enrich event payload", zap.Uint64("task_id", payload.TaskID), zap.Error(err))
	}
}

// populateExternal 外部通道的待投递记录，失败只记录日志
func (f *Fanout) populateExternal(ctx context.Context, ev *Event, recipients []uint64) {
	targets := recipients
	if len(f.cfg.AllowList) > 0 {
		targets = lo.Intersect(targets, f.cfg.AllowList)
	}
	if len(targets) == 0 {
		return
	}
	err := f.tx.Execute(ctx, func(ctx context.Context) error {
		bindings, err := f.directory.ExternalBindings(ctx, targets)
		if err != nil {
			return err
		}
		pending := make([]*Delivery, 0, len(bindings))
		for _, userID := range targets {
			externalID, ok := bindings[userID]
			if !ok || externalID == "" {
				continue
			}
			pending = append(pending, &Delivery{
				EventID:    ev.ID,
				UserID:     userID,
				Channel:    f.cfg.ExternalChannel,
				Status:     DeliveryPending,
				ExternalID: externalID,
			})
		}
		if len(pending) == 0 {
			return nil
		}
		return f.repo.InsertDeliveries(ctx, pending)
	})
	if err != nil {
		f.logger.Warn("failed to populate external deliveries",
			zap.Uint64("event_id", ev.ID),
			zap.String("channel", f.cfg.ExternalChannel),
			zap.Error(err))
	}
}

// ListForUser 用户收件箱，游标为审计ID
func (f *Fanout) ListForUser(ctx context.Context, filter ListFilter) ([]*Event, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultListLimit
	case filter.Limit > MaxListLimit:
		filter.Limit = MaxListLimit
	}
	events, err := f.repo.ListForUser(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
