package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/taskflow/server/internal/domain/txn"
	"go.uber.org/zap"
)

var (
	_ txn.Locker = (*Locker)(nil)
	_ txn.Locker = (*RedisLocker)(nil)
)

// Locker MySQL分布式锁。GET_LOCK 是会话级别的，获取和释放必须在同一条连接上
type Locker struct {
	db       *sql.DB
	lockName string
	timeout  time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	conn *sql.Conn
}

// NewLocker 创建分布式锁
func NewLocker(db *sql.DB, lockName string, timeout time.Duration, logger *zap.Logger) *Locker {
	return &Locker{
		db:       db,
		lockName: lockName,
		timeout:  timeout,
		logger:   logger,
	}
}

// TryLock 尝试获取锁，成功后独占一条连接直到 Unlock
func (l *Locker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return true, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get connection: %w", err)
	}

	// MySQL GET_LOCK 函数
	// 返回值: 1-成功获取锁, 0-超时, NULL-错误
	var result sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.lockName, int(l.timeout.Seconds())).Scan(&result)
	if err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !result.Valid {
		_ = conn.Close()
		return false, fmt.Errorf("lock query returned NULL")
	}
	if result.Int64 != 1 {
		_ = conn.Close()
		return false, nil
	}

	l.conn = conn
	l.logger.Info("acquired distributed lock", zap.String("lock_name", l.lockName))
	return true, nil
}

// Unlock 释放锁并归还连接
func (l *Locker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	// 返回值: 1-成功释放锁, 0-不是持有者, NULL-锁不存在
	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.lockName).Scan(&result); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if !result.Valid || result.Int64 != 1 {
		return fmt.Errorf("failed to release lock: not owner or lock does not exist")
	}
	l.logger.Info("released distributed lock", zap.String("lock_name", l.lockName))
	return nil
}

// IsLocked 检查是否持有锁
func (l *Locker) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// 只删除自己持有的键
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker 基于 SET NX 的锁，ttl 防止持有者崩溃后永久占用
type RedisLocker struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	l.token = token
	l.logger.Info("acquired distributed lock", zap.String("lock_name", l.key))
	return true, nil
}

func (l *RedisLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to release lock: lock expired or taken over")
	}
	l.logger.Info("released distributed lock", zap.String("lock_name", l.key))
	return nil
}

func (l *RedisLocker) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token != ""
}
