package recurring

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/wire"
	"github.com/taskflow/server/internal/domain/errs"
)

// NewEngine 带可变参数，由 cmd 里的 provider 组装
var Provider = wire.NewSet(NewEngineConfig, NewTemplates)

const (
	DefaultTemplateLimit = 50
	MaxTemplateLimit     = 500
)

// Templates 模板管理
type Templates struct {
	repo Repo
}

func NewTemplates(repo Repo) *Templates {
	return &Templates{repo: repo}
}

// Create 调度参数在这里校验一次，之后引擎只读
func (s *Templates) Create(ctx context.Context, tpl *Template) error {
	tpl.Code = strings.TrimSpace(tpl.Code)
	tpl.Title = strings.TrimSpace(tpl.Title)
	if err := tpl.Validate(); err != nil {
		return asValidation(err)
	}
	if _, err := ParseSchedule(tpl.ScheduleType, tpl.ScheduleParams); err != nil {
		return err
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *Templates) Get(ctx context.Context, id uint64) (*Template, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, errs.NotFound(errs.CodeTemplateNotFound, "template not found").WithDetail("template_id", id)
	}
	return tpl, nil
}

func (s *Templates) List(ctx context.Context, filter TemplateFilter) ([]*Template, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultTemplateLimit
	case filter.Limit > MaxTemplateLimit:
		filter.Limit = MaxTemplateLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListTemplates(ctx, filter)
}

// asValidation 管理接口的输入缺失是调用方错误，不是配置错误
func asValidation(err error) error {
	be, ok := errs.As(err)
	if !ok || be.Kind != errs.KindConfiguration {
		return err
	}
	out := errs.Validation(be.Code, be.Message).WithReason(be.Reason).WithHint(be.Hint)
	for k, v := range be.Details {
		out.WithDetail(k, v)
	}
	return out
}
