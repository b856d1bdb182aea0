package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/pkg/config"
)

// Message 发往外部通道网关的一条通知
type Message struct {
	MessageID  string     `json:"message_id"`
	DeliveryID uint64     `json:"delivery_id"`
	EventID    uint64     `json:"event_id"`
	EventType  event.Type `json:"event_type"`
	TaskID     uint64     `json:"task_id"`
	UserID     uint64     `json:"user_id"`
	Channel    string     `json:"channel"`
	ExternalID string     `json:"external_id"`
	Text       string     `json:"text"`
	Payload    any        `json:"payload,omitempty"`
	Timestamp  int64      `json:"ts"`
}

// Publisher 外部通道的出口，网关订阅后负责真正发送
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Name() string
}

// NewPublisher 按配置选择实现，none 时返回 nil，分发器不启动
func NewPublisher(cfg config.Config, rdb *redis.Client, nc *nats.Conn) (Publisher, error) {
	switch cfg.Notify.Publisher {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("notify.publisher=redis requires redis.enabled")
		}
		return NewRedisPublisher(rdb, cfg.Notify.Topic), nil
	case "nats":
		if nc == nil {
			return nil, fmt.Errorf("notify.publisher=nats requires nats.enabled")
		}
		return NewNATSPublisher(nc, cfg.Notify.Topic), nil
	default:
		return nil, nil
	}
}

// RedisPublisher 通过 redis pub/sub 发布
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	// 没有订阅者时消息会丢失，视为失败以便重试
	n, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no subscribers on channel %s", p.channel)
	}
	return nil
}

// NATSPublisher 使用 request/reply，网关应答后才算送达
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject, timeout: 5 * time.Second}
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	reply, err := p.nc.RequestWithContext(ctx, p.subject, payload)
	if err != nil {
		return err
	}
	if len(reply.Data) > 0 && string(reply.Data) != "ok" {
		return fmt.Errorf("gateway rejected message: %s", reply.Data)
	}
	return nil
}
