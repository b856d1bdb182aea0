package status

import "context"

type Repo interface {
	List(ctx context.Context) ([]Entry, error)
	// Seed 按 code 写入缺失的条目，已有条目不修改
	Seed(ctx context.Context, entries []Entry) error
}
