//go:build wireinject
// +build wireinject

package main

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

import (
	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/policy"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/workflow"
	"github.com/taskflow/server/internal/bootstrap"
	"github.com/taskflow/server/internal/infra/persistence/auditrepo"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"github.com/taskflow/server/internal/infra/persistence/directoryrepo"
	"github.com/taskflow/server/internal/infra/persistence/eventrepo"
	"github.com/taskflow/server/internal/infra/persistence/periodrepo"
	"github.com/taskflow/server/internal/infra/persistence/regulartaskrepo"
	"github.com/taskflow/server/internal/infra/persistence/statusrepo"
	"github.com/taskflow/server/internal/infra/persistence/taskrepo"
	"github.com/taskflow/server/internal/metrics"
	"github.com/taskflow/server/internal/orm"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

// InitializeEngine 只装配周期引擎，不启动 HTTP 和分发器
func InitializeEngine(cfg config.Config, logger *zap.Logger) (*recurring.Engine, func(), error) {
	wire.Build(
		bootstrap.ProvideDatabaseConfig,
		bootstrap.ProvideRedisClient,
		bootstrap.ProvideCatalog,
		bootstrap.ProvideLocker,
		bootstrap.ProvideEngine,

		orm.Provider,
		metrics.Provider,

		policy.Provider,
		audit.Provider,
		event.Provider,
		period.Provider,
		workflow.Provider,
		recurring.Provider,

		commonrepo.Provider,
		statusrepo.Provider,
		directoryrepo.Provider,
		taskrepo.Provider,
		auditrepo.Provider,
		eventrepo.Provider,
		periodrepo.Provider,
		regulartaskrepo.Provider,
	)
	return nil, nil, nil
}
