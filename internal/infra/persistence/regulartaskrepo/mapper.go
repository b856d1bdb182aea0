package regulartaskrepo

import (
	"encoding/json"

	"github.com/taskflow/server/internal/biz/period"
	domain "github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/infra/persistence/commonrepo"
	"gorm.io/datatypes"
)

func (po *TemplatePo) FromDomain(in *domain.Template) *TemplatePo {
	var params datatypes.JSON
	if len(in.ScheduleParams) > 0 {
		params = datatypes.JSON(in.ScheduleParams)
	}
	return &TemplatePo{
		Mode: commonrepo.Mode{
			ID:        in.ID,
			CreatedAt: in.CreatedAt,
			UpdatedAt: in.UpdatedAt,
		},
		Active:           in.Active,
		Code:             in.Code,
		Title:            in.Title,
		Description:      in.Description,
		ExecutorRoleID:   in.ExecutorRoleID,
		ApproverRoleID:   in.ApproverRoleID,
		InitiatorID:      in.InitiatorID,
		ScopeKind:        string(in.Scope.Kind),
		ScopeRefID:       in.Scope.RefID,
		ScopeUnitPath:    in.Scope.UnitPath,
		ScheduleType:     in.ScheduleType.String(),
		ScheduleParams:   params,
		CreateOffsetDays: in.CreateOffsetDays,
		DueOffsetDays:    in.DueOffsetDays,
	}
}

func (po *TemplatePo) ToDomain() *domain.Template {
	return &domain.Template{
		ID:             po.ID,
		CreatedAt:      po.CreatedAt,
		UpdatedAt:      po.UpdatedAt,
		Active:         po.Active,
		Code:           po.Code,
		Title:          po.Title,
		Description:    po.Description,
		ExecutorRoleID: po.ExecutorRoleID,
		ApproverRoleID: po.ApproverRoleID,
		InitiatorID:    po.InitiatorID,
		Scope: task.Scope{
			Kind:     task.ScopeKind(po.ScopeKind),
			RefID:    po.ScopeRefID,
			UnitPath: po.ScopeUnitPath,
		},
		ScheduleType:     period.Kind(po.ScheduleType),
		ScheduleParams:   json.RawMessage(po.ScheduleParams),
		CreateOffsetDays: po.CreateOffsetDays,
		DueOffsetDays:    po.DueOffsetDays,
	}
}

func (po *RunPo) FromDomain(in *domain.Run) *RunPo {
	return &RunPo{
		ID:            in.ID,
		StartedAt:     in.StartedAt,
		FinishedAt:    in.FinishedAt,
		EffectiveDate: in.EffectiveDate,
		DryRun:        in.DryRun,
		Forced:        in.Forced,
		Status:        string(in.Status),
		Stats:         datatypes.NewJSONType(in.Stats),
		Errors:        datatypes.NewJSONSlice(in.Errors),
	}
}

func (po *RunItemPo) FromDomain(in *domain.RunItem) *RunItemPo {
	return &RunItemPo{
		AppendOnly: commonrepo.AppendOnly{ID: in.ID, CreatedAt: in.CreatedAt},
		RunID:      in.RunID,
		TemplateID: in.TemplateID,
		Due:        in.Due,
		Outcome:    string(in.Outcome),
		TaskID:     in.TaskID,
		PeriodID:   in.PeriodID,
		Message:    commonrepo.Truncate(in.Message, messageSize),
		Meta:       datatypes.NewJSONType(in.Meta),
	}
}

func (po *RunItemPo) ToDomain() *domain.RunItem {
	return &domain.RunItem{
		ID:         po.ID,
		CreatedAt:  po.CreatedAt,
		RunID:      po.RunID,
		TemplateID: po.TemplateID,
		Due:        po.Due,
		Outcome:    domain.Outcome(po.Outcome),
		TaskID:     po.TaskID,
		PeriodID:   po.PeriodID,
		Message:    po.Message,
		Meta:       po.Meta.Data(),
	}
}
