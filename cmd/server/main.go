package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskflow/server/internal/bootstrap"
	"github.com/taskflow/server/pkg/config"
	"github.com/taskflow/server/pkg/logger"
	"github.com/yitter/idgenerator-go/idgen"
	"go.uber.org/zap"
)

func main() {
	// 解析命令行参数
	var configPath string
	var workerID uint
	flag.StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	flag.UintVar(&workerID, "worker-id", 1, "snowflake worker id, unique per instance (0-63)")
	flag.Parse()

	// 周期运行记录的ID，多实例部署时 worker-id 必须不同
	var options = idgen.NewIdGeneratorOptions(uint16(workerID))
	options.BaseTime = 1755937966000
	options.WorkerIdBitLength = 6
	idgen.SetIdGenerator(options)

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 创建日志器
	zapLogger, err := logger.FromConfig(*cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting taskflow server",
		zap.Int("port", cfg.Server.Port),
		zap.String("rbac_mode", cfg.RBAC.Mode),
		zap.String("approver_mode", cfg.RBAC.ApproverMode))

	if cfg.Database.AutoMigrate {
		if err := bootstrap.MigrateDatabase(context.Background(), *cfg, zapLogger); err != nil {
			zapLogger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app, cleanup, err := InitializeApp(*cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize app", zap.Error(err))
	}
	defer cleanup()

	if err := app.Start(); err != nil {
		zapLogger.Fatal("Failed to start app", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zapLogger.Info("Shutting down...")
	app.Stop(30 * time.Second)
	zapLogger.Info("Shutdown complete")
}
