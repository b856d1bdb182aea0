package period

import (
	"context"
	"time"
)

type Repo interface {
	// Find 不存在时返回 nil
	Find(ctx context.Context, kind Kind, start, end time.Time) (*Period, error)
	// FindLatest 当前读，不受事务快照影响，用于插入冲突之后
	FindLatest(ctx context.Context, kind Kind, start, end time.Time) (*Period, error)
	// Create 唯一键冲突时返回 errs.ErrDuplicate
	Create(ctx context.Context, p *Period) error
	GetByID(ctx context.Context, id uint64) (*Period, error)
}
