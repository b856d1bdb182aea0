package commonrepo

import (
	"context"
	"errors"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/domain/errs"
	"github.com/taskflow/server/internal/domain/txn"
	"gorm.io/gorm"
)

var Provider = wire.NewSet(NewTransactionManager, wire.Bind(new(txn.Manager), new(*DefaultRepo)))

var _ txn.Manager = (*DefaultRepo)(nil)

type dbContextKey struct{}

type DefaultRepo struct {
	db DB
}

func NewDefaultRepo(db DB) DefaultRepo {
	return DefaultRepo{db: db}
}

func NewTransactionManager(db DB) *DefaultRepo {
	r := NewDefaultRepo(db)
	return &r
}

// Execute ctx 中已有事务时 gorm 使用 SAVEPOINT，实现嵌套事务
func (r *DefaultRepo) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.Db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, dbContextKey{}, tx))
	})
}

func (r *DefaultRepo) dbFromContext(ctx context.Context) DB {
	db, ok := ctx.Value(dbContextKey{}).(DB)
	if !ok {
		return r.db
	}
	return db
}

func (r *DefaultRepo) Db(ctx context.Context) DB {
	return r.dbFromContext(ctx).WithContext(ctx)
}

// InTransaction 当前 ctx 是否已处于事务中
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(dbContextKey{}).(DB)
	return ok
}

// TranslateError 将 gorm 的唯一键冲突转换为领域错误
func TranslateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrDuplicate
	}
	return err
}

// IgnoreNotFound 记录不存在返回 nil
func IgnoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
