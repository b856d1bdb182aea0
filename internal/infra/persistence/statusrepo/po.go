package statusrepo

import domain "github.com/taskflow/server/internal/biz/status"

type StatusPo struct {
	ID       uint64 `gorm:"column:id;primarykey;autoIncrement:false"`
	Code     string `gorm:"column:code;size:32;not null;uniqueIndex"`
	Label    string `gorm:"column:label;size:100;not null"`
	Terminal bool   `gorm:"column:terminal;not null;default:false"`
}

func (StatusPo) TableName() string {
	return "task_statuses"
}

func (po *StatusPo) FromDomain(in domain.Entry) *StatusPo {
	return &StatusPo{ID: in.ID, Code: in.Code.String(), Label: in.Label, Terminal: in.Terminal}
}

func (po *StatusPo) ToDomain() domain.Entry {
	return domain.Entry{ID: po.ID, Code: domain.Code(po.Code), Label: po.Label, Terminal: po.Terminal}
}
