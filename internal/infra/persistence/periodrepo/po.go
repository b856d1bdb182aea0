package periodrepo

import (
	"time"

	domain "github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
)

type PeriodPo struct {
	commonrepo.AppendOnly
	Kind  string    `gorm:"column:kind;size:16;not null;uniqueIndex:uk_period_bounds"`
	Start time.Time `gorm:"column:start_date;type:date;not null;uniqueIndex:uk_period_bounds"`
	End   time.Time `gorm:"column:end_date;type:date;not null;uniqueIndex:uk_period_bounds"`
	Label string    `gorm:"column:label;size:64;not null"`
}

func (PeriodPo) TableName() string {
	return "reporting_periods"
}

func (po *PeriodPo) FromDomain(in *domain.Period) *PeriodPo {
	return &PeriodPo{
		AppendOnly: commonrepo.AppendOnly{ID: in.ID, CreatedAt: in.CreatedAt},
		Kind:       in.Kind.String(),
		Start:      in.Start,
		End:        in.End,
		Label:      in.Label,
	}
}

func (po *PeriodPo) ToDomain() *domain.Period {
	return &domain.Period{
		ID:        po.ID,
		CreatedAt: po.CreatedAt,
		Kind:      domain.Kind(po.Kind),
		Start:     domain.DateOf(po.Start),
		End:       domain.DateOf(po.End),
		Label:     po.Label,
	}
}
