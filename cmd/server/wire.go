//go:build wireinject
// +build wireinject

package main

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

import (
	"github.com/google/wire"
	"github.com/taskflow/server/internal/api"
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
	"github.com/taskflow/server/internal/notify"
	"github.com/taskflow/server/internal/orm"
	"github.com/taskflow/server/internal/scheduler"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

func InitializeApp(cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		NewApp,

		bootstrap.Provider,

		wire.Bind(new(api.Engine), new(*recurring.Engine)),
		wire.Bind(new(api.Pinger), new(*orm.Storage)),

		// other
		orm.Provider,
		metrics.Provider,
		scheduler.Provider,
		notify.Provider,

		// http api providers
		api.Provider,

		// biz providers
		policy.Provider,
		audit.Provider,
		event.Provider,
		period.Provider,
		recurring.Provider,
		workflow.Provider,

		// infra providers
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
