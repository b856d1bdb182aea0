package directoryrepo

import domain "github.com/taskflow/server/internal/biz/directory"

func (po *UserPo) ToDomain() *domain.User {
	return &domain.User{
		ID:         po.ID,
		FullName:   po.FullName,
		RoleID:     po.RoleID,
		UnitID:     po.UnitID,
		Active:     po.Active,
		ExternalID: po.ExternalChatID,
	}
}

func (po *RolePo) ToDomain() *domain.Role {
	return &domain.Role{ID: po.ID, Name: po.Name}
}
