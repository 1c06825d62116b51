package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	CompanyRoleManager = "manager"
	CompanyRoleMember  = "member"
)

type Company struct {
	ID   types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name string   `json:"name" gorm:"unique_index:uni_company_name"`

	CreatorID  types.ID  `json:"creatorId"`
	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}

type CompanyCreation struct {
	Name string `json:"name" binding:"required" validate:"required"`
}

type CompanyQuery struct {
	Name string `json:"name" form:"name"`
}
