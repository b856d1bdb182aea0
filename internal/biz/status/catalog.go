package status

import (
	"context"
	"fmt"

	"github.com/taskflow/server/internal/domain/errs"
)

// Catalog 只读状态字典：code <-> id
type Catalog struct {
	byCode map[Code]Entry
	byID   map[uint64]Entry
}

func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{
		byCode: make(map[Code]Entry, len(entries)),
		byID:   make(map[uint64]Entry, len(entries)),
	}
	for _, e := range entries {
		c.byCode[e.Code] = e
		c.byID[e.ID] = e
	}
	return c
}

// LoadCatalog 从数据库加载字典，缺少任何必需状态即视为配置错误
func LoadCatalog(ctx context.Context, repo Repo) (*Catalog, error) {
	entries, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load task statuses: %w", err)
	}
	c := NewCatalog(entries)
	for _, code := range Required() {
		if _, err := c.ID(code); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) ID(code Code) (uint64, error) {
	e, ok := c.byCode[code]
	if !ok {
		return 0, errs.Configuration(errs.CodeStatusNotFound, "task status is not configured").
			WithReason(fmt.Sprintf("status code %s is missing from task_statuses", code)).
			WithHint("run migrations to seed the status dictionary")
	}
	return e.ID, nil
}

// MustID 仅用于字典已通过 LoadCatalog 校验的场景
func (c *Catalog) MustID(code Code) uint64 {
	id, err := c.ID(code)
	if err != nil {
		panic(err)
	}
	return id
}

func (c *Catalog) Entry(id uint64) (Entry, error) {
	e, ok := c.byID[id]
	if !ok {
		return Entry{}, errs.Configuration(errs.CodeStatusNotFound, "task status is not configured").
			WithReason(fmt.Sprintf("status id %d is missing from task_statuses", id))
	}
	return e, nil
}

func (c *Catalog) Code(id uint64) (Code, error) {
	e, err := c.Entry(id)
	if err != nil {
		return "", err
	}
	return e.Code, nil
}

func (c *Catalog) IsTerminal(code Code) bool {
	return c.byCode[code].Terminal
}
