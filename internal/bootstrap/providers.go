package bootstrap

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/google/wire"
	"github.com/nats-io/nats.go"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/txn"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/internal/orm"
	"github.com/taskflow/server/internal/scheduler"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

// Provider 两个可执行程序共用的基础设施
var Provider = wire.NewSet(
	ProvideDatabaseConfig,
	ProvideRedisClient,
	ProvideNATSConn,
	ProvideCatalog,
	ProvideLocker,
	ProvideEngine,
)

func ProvideDatabaseConfig(cfg config.Config) config.DatabaseConfig {
	return cfg.Database
}

// ProvideRedisClient builds a redis client from typed config.
// Returns nil when redis is disabled.
func ProvideRedisClient(cfg config.Config) (*redis.Client, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rdb, func() { _ = rdb.Close() }
}

// ProvideNATSConn nats 未启用时返回 nil
func ProvideNATSConn(cfg config.Config, logger *zap.Logger) (*nats.Conn, func(), error) {
	if !cfg.NATS.Enabled {
		return nil, func() {}, nil
	}
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.NATS.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nc.Close, nil
}

// ProvideCatalog 状态字典缺少必需的编码时启动失败
func ProvideCatalog(repo status.Repo) (*status.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return status.LoadCatalog(ctx, repo)
}

// ProvideLocker 有 redis 时用 SETNX，否则用 MySQL GET_LOCK
func ProvideLocker(cfg config.Config, storage *orm.Storage, rdb *redis.Client, logger *zap.Logger) (txn.Locker, error) {
	if rdb != nil {
		return scheduler.NewRedisLocker(rdb, cfg.Recurring.LockKey, 0, logger.Named("lock")), nil
	}
	sqlDB, err := storage.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return scheduler.NewLocker(sqlDB, cfg.Recurring.LockKey, cfg.Recurring.LockTimeout, logger.Named("lock")), nil
}

func ProvideEngine(
	repo recurring.Repo,
	tasks task.Repo,
	periods *period.Resolver,
	dir directory.Repo,
	creator recurring.TaskCreator,
	auditLog *audit.Log,
	tx txn.Manager,
	cfg recurring.EngineConfig,
	m *metrics.Metrics,
	locker txn.Locker,
	logger *zap.Logger,
) *recurring.Engine {
	return recurring.NewEngine(repo, tasks, periods, dir, creator, auditLog, tx, cfg, m, logger, recurring.WithLocker(locker))
}
