package txn

import "context"

// Manager 事务管理接口
type Manager interface {
	// Execute 将一个函数包裹在事务中执行。
	// 如果函数返回错误，事务将回滚；否则将提交。
	// 在已有事务的 ctx 上调用时使用 SAVEPOINT，内层失败只回滚到保存点。
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker 分布式锁接口
type Locker interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context) (bool, error)

	// Unlock 释放锁
	Unlock(ctx context.Context) error

	// IsLocked 检查是否持有锁
	IsLocked() bool
}
