package taskrepo

import (
	"github.com/taskflow/server/internal/biz/status"
	domain "github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
)

func (po *TaskPo) FromDomain(in *domain.Task, statusID uint64) *TaskPo {
	return &TaskPo{
		Mode: commonrepo.Mode{
			ID:        in.ID,
			CreatedAt: in.CreatedAt,
			UpdatedAt: in.UpdatedAt,
		},
		TemplateID:     in.TemplateID,
		PeriodID:       in.PeriodID,
		Title:          in.Title,
		Description:    in.Description,
		InitiatorID:    in.InitiatorID,
		ExecutorRoleID: in.ExecutorRoleID,
		ApproverRoleID: in.ApproverRoleID,
		ScopeKind:      string(in.Scope.Kind),
		ScopeRefID:     in.Scope.RefID,
		ScopeUnitPath:  in.Scope.UnitPath,
		StatusID:       statusID,
		DueDate:        in.DueDate,
	}
}

func (po *TaskPo) ToDomain(code status.Code) *domain.Task {
	return &domain.Task{
		ID:             po.ID,
		CreatedAt:      po.CreatedAt,
		UpdatedAt:      po.UpdatedAt,
		TemplateID:     po.TemplateID,
		PeriodID:       po.PeriodID,
		Title:          po.Title,
		Description:    po.Description,
		InitiatorID:    po.InitiatorID,
		ExecutorRoleID: po.ExecutorRoleID,
		ApproverRoleID: po.ApproverRoleID,
		Scope: domain.Scope{
			Kind:     domain.ScopeKind(po.ScopeKind),
			RefID:    po.ScopeRefID,
			UnitPath: po.ScopeUnitPath,
		},
		Status:  code,
		DueDate: po.DueDate,
	}
}

func (po *ReportPo) FromDomain(in *domain.Report) *ReportPo {
	return &ReportPo{
		Mode:        commonrepo.Mode{ID: in.ID},
		TaskID:      in.TaskID,
		SubmittedBy: in.SubmittedBy,
		Link:        in.Link,
		Comment:     in.Comment,
		SubmittedAt: in.SubmittedAt,
		ApprovedAt:  in.ApprovedAt,
		ApprovedBy:  in.ApprovedBy,
	}
}

func (po *ReportPo) ToDomain() *domain.Report {
	return &domain.Report{
		ID:          po.ID,
		TaskID:      po.TaskID,
		SubmittedBy: po.SubmittedBy,
		Link:        po.Link,
		Comment:     po.Comment,
		SubmittedAt: po.SubmittedAt,
		ApprovedAt:  po.ApprovedAt,
		ApprovedBy:  po.ApprovedBy,
	}
}

func (r *MysqlRepositoryImpl) patchToMap(input *domain.TaskPatch) (map[string]any, error) {
	var values = make(map[string]any)

	if input.Title != nil {
		values["title"] = *input.Title
	}

	if input.Description != nil {
		values["description"] = *input.Description
	}

	if input.DueDate != nil {
		values["due_date"] = *input.DueDate
	}

	if input.Status != nil {
		id, err := r.catalog.ID(*input.Status)
		if err != nil {
			return nil, err
		}
		values["status_id"] = id
	}

	if input.ExecutorRoleID != nil {
		values["executor_role_id"] = *input.ExecutorRoleID
	}

	return values, nil
}
