package task

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uint64) (*Task, error)
	// GetForUpdate SELECT ... FOR UPDATE，必须在事务内调用
	GetForUpdate(ctx context.Context, id uint64) (*Task, error)
	Update(ctx context.Context, id uint64, patch *TaskPatch) error

	// FindActiveByTemplate 查找模板在某周期、某范围下未归档的任务，lock 为 true 时加行锁
	FindActiveByTemplate(ctx context.Context, filter TemplateTaskFilter, lock bool) ([]*Task, error)

	GetReport(ctx context.Context, taskID uint64) (*Report, error)
	// UpsertReport 以 task_id 唯一键覆盖已有报告
	UpsertReport(ctx context.Context, report *Report) error
	SetReportApproval(ctx context.Context, taskID uint64, approvedAt *time.Time, approvedBy *uint64) error
}

type TemplateTaskFilter struct {
	TemplateID uint64
	PeriodID   uint64
	Scope      Scope
}
