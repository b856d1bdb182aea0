package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/infra/persistence/auditrepo"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"github.com/taskflow/server/internal/infra/persistence/directoryrepo"
	"github.com/taskflow/server/internal/infra/persistence/eventrepo"
	"github.com/taskflow/server/internal/infra/persistence/periodrepo"
	"github.com/taskflow/server/internal/infra/persistence/regulartaskrepo"
	"github.com/taskflow/server/internal/infra/persistence/statusrepo"
	"github.com/taskflow/server/internal/infra/persistence/taskrepo"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Provider = wire.NewSet(New, ProvideDB)

type Storage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New 打开连接池。日期列按 UTC 读写，与领域层的日历日期表示一致
func New(cfg config.DatabaseConfig, zl *zap.Logger) (*Storage, func(), error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.New(zap.NewStdLog(zl.Named("gorm")), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true, // 禁用外键约束创建，保留关联关系
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	s := &Storage{db: db, logger: zl.Named("orm")}
	cleanup := func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to close database", zap.Error(err))
		}
	}
	return s, cleanup, nil
}

// ProvideDB 仓储只依赖 commonrepo.DB
func ProvideDB(s *Storage) commonrepo.DB {
	return s.db
}

// Models 需要迁移的表，被引用的表在前
func Models() []any {
	return []any{
		&statusrepo.StatusPo{},
		&directoryrepo.RolePo{},
		&directoryrepo.OrgUnitPo{},
		&directoryrepo.UserPo{},
		&directoryrepo.GroupMemberPo{},
		&periodrepo.PeriodPo{},
		&regulartaskrepo.TemplatePo{},
		&taskrepo.TaskPo{},
		&taskrepo.ReportPo{},
		&auditrepo.AuditPo{},
		&eventrepo.EventPo{},
		&eventrepo.RecipientPo{},
		&eventrepo.DeliveryPo{},
		&regulartaskrepo.RunPo{},
		&regulartaskrepo.RunItemPo{},
	}
}

// Migrate 建表并写入状态字典，可重复执行
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := statusrepo.NewMysqlRepositoryImpl(s.db).Seed(ctx, status.Defaults()); err != nil {
		return fmt.Errorf("failed to seed task statuses: %w", err)
	}
	s.logger.Info("database migrated", zap.Int("tables", len(Models())))
	return nil
}

func (s *Storage) DB() *gorm.DB {
	return s.db
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
