package commonrepo

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB 仓储用到的 *gorm.DB 子集，事务内外都满足
type DB interface {
	Model(value any) (tx *gorm.DB)
	Create(value any) (tx *gorm.DB)
	Where(query any, args ...any) (tx *gorm.DB)
	Select(query any, args ...any) (tx *gorm.DB)
	Order(value any) *gorm.DB
	Clauses(conds ...clause.Expression) (tx *gorm.DB)
	Transaction(fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
	WithContext(ctx context.Context) *gorm.DB
}

var _ DB = (*gorm.DB)(nil)
