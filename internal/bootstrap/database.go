package bootstrap

import (
	"context"
	"time"

	"github.com/taskflow/server/internal/orm"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

// MigrateDatabase 建表并写入状态字典。状态字典必须在加载 Catalog 之前存在
func MigrateDatabase(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	storage, cleanup, err := orm.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return storage.Migrate(ctx)
}
