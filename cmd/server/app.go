package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/taskflow/server/internal/api"
	"github.com/taskflow/server/internal/notify"
	"github.com/taskflow/server/internal/orm"
	"github.com/taskflow/server/internal/scheduler"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

// App 进程内的全部长驻组件
type App struct {
	cfg        config.Config
	storage    *orm.Storage
	server     *api.Server
	scheduler  *scheduler.Scheduler
	dispatcher *notify.Dispatcher
	logger     *zap.Logger

	httpServer *http.Server
}

func NewApp(
	cfg config.Config,
	storage *orm.Storage,
	server *api.Server,
	sched *scheduler.Scheduler,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *App {
	return &App{
		cfg:        cfg,
		storage:    storage,
		server:     server,
		scheduler:  sched,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start 启动 HTTP、定时触发和通知分发，HTTP 监听失败时调用 fatal
func (a *App) Start() error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.dispatcher.Start()

	a.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:        a.server.Router(),
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		MaxHeaderBytes: a.cfg.Server.MaxHeaderBytes,
	}
	go func() {
		a.logger.Info("Starting API server", zap.Int("port", a.cfg.Server.Port))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()
	return nil
}

// Stop 先停止接收请求，再等待正在执行的运行和投递结束
func (a *App) Stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown API server", zap.Error(err))
		}
	}
	a.scheduler.Stop()
	a.dispatcher.Stop()
}
