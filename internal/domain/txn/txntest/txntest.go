// Package txntest 测试用的事务实现
package txntest

import "context"

// Direct 直接执行 fn，不做回滚
type Direct struct {
	Calls int
}

func (d *Direct) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	d.Calls++
	return fn(ctx)
}
