package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/internal/domain/txn"
)

var Provider = wire.NewSet(NewResolver)

// Resolver 周期的 get-or-create
type Resolver struct {
	repo Repo
	tx   txn.Manager
}

func NewResolver(repo Repo, tx txn.Manager) *Resolver {
	return &Resolver{repo: repo, tx: tx}
}

// Resolve 返回 today 的上一个周期。并发插入冲突时在保存点内回滚并重新查询
func (r *Resolver) Resolve(ctx context.Context, kind Kind, today time.Time) (*Period, error) {
	start, end, err := PreviousBounds(kind, today)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, kind, start, end)
}

func (r *Resolver) Get(ctx context.Context, kind Kind, start, end time.Time) (*Period, error) {
	existing, err := r.repo.Find(ctx, kind, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find period: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	p := &Period{Kind: kind, Start: start, End: end, Label: Label(kind, start, end)}
	err = r.tx.Execute(ctx, func(ctx context.Context) error {
		return r.repo.Create(ctx, p)
	})
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errs.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create period: %w", err)
	}

	// 普通 SELECT 仍读第一次查询时的快照，看不到对方刚提交的行
	existing, err = r.repo.FindLatest(ctx, kind, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read period: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("period %s %s..%s vanished after duplicate insert", kind, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return existing, nil
}
