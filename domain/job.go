package domain

import (
	"jobflow/domain/status"

	"github.com/fundwit/go-commons/types"
)

type Job struct {
	ID   types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name string   `json:"name"`

	CompanyID types.ID `json:"companyId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	JobType   string   `json:"jobType"`

	// CurrentStageID only ever changes through the transition engine so the
	// audit trail stays a contiguous path. 0 after the stage was deleted.
	CurrentStageID types.ID        `json:"currentStageId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	StageEnteredAt types.Timestamp `json:"stageEnteredAt" sql:"type:DATETIME(6) NOT NULL"`
	Status         status.Status   `json:"status"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type JobDetail struct {
	Job
	CurrentStage Stage `json:"currentStage" gorm:"-"`
}

type JobCreation struct {
	Name      string   `json:"name" binding:"required" validate:"required"`
	CompanyID types.ID `json:"companyId" binding:"required" validate:"required"`
	JobType   string   `json:"jobType" binding:"required" validate:"required"`
}

type JobUpdating struct {
	Name    string `json:"name"`
	JobType string `json:"jobType"`
}

type JobQuery struct {
	CompanyID types.ID        `json:"companyId" form:"companyId"`
	Name      string          `json:"name" form:"name"`
	Statuses  []status.Status `json:"statuses" form:"status"`
}
