package recurring

import "context"

type TemplateFilter struct {
	ActiveOnly bool
	Offset     int
	Limit      int
}

type Repo interface {
	CreateTemplate(ctx context.Context, tpl *Template) error
	// GetTemplate 不存在时返回 nil
	GetTemplate(ctx context.Context, id uint64) (*Template, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*Template, error)

	InsertRun(ctx context.Context, run *Run) error
	InsertItem(ctx context.Context, item *RunItem) error
	ListItems(ctx context.Context, runID uint64) ([]*RunItem, error)
	// LatestCreated 模板在该周期最近一次 created 明细，没有时返回 nil
	LatestCreated(ctx context.Context, templateID, periodID uint64) (*RunItem, error)
}
