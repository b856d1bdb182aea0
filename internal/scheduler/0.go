package scheduler

import (
	"github.com/google/wire"
	"github.com/taskflow/server/internal/biz/recurring"
)

var Provider = wire.NewSet(
	New,
	wire.Bind(new(Runner), new(*recurring.Engine)),
)
