package account

import (
	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID     types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name   string   `json:"name" gorm:"unique_index:uni_user_name"`
	Secret string   `json:"secret"`

	Nickname string `json:"nickname"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

type UserCreation struct {
	Name     string `json:"name" binding:"required,lte=32" validate:"required"`
	Secret   string `json:"secret" binding:"required,gte=6,lte=32" validate:"required"`
	Nickname string `json:"nickname" binding:"omitempty,gte=1,lte=32"`
}

// CompanyMember grants a user a role inside one company, which surfaces
// in session perms as "<role>_<companyId>".
type CompanyMember struct {
	UserID    types.ID `json:"userId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	CompanyID types.ID `json:"companyId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Role      string   `json:"role"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type CompanyMemberCreation struct {
	UserID    types.ID `json:"userId" binding:"required" validate:"required"`
	CompanyID types.ID `json:"companyId" binding:"required" validate:"required"`
	Role      string   `json:"role" binding:"required" validate:"required"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}
