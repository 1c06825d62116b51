package flow

import (
	"jobflow/domain"
	"jobflow/domain/status"

	"github.com/fundwit/go-commons/types"
)

type StageCreation struct {
	Name        string `json:"name" binding:"required" validate:"required"`
	Description string `json:"description"`
	ThemeColor  string `json:"themeColor"`

	Order  int              `json:"order" binding:"required" validate:"required"`
	Status status.Status    `json:"status" binding:"required" validate:"required"`
	Kind   domain.StageKind `json:"kind"`

	MinDurationHours int `json:"minDurationHours"`
	MaxDurationHours int `json:"maxDurationHours"`

	CompanyID types.ID `json:"companyId"`
	IsInitial bool     `json:"isInitial"`

	Questions []QuestionCreation `json:"questions" binding:"dive"`
}

type QuestionCreation struct {
	Text     string `json:"text" binding:"required" validate:"required"`
	HelpText string `json:"helpText"`

	ResponseType domain.ResponseType `json:"responseType" binding:"required" validate:"required"`
	Order        int                 `json:"order" binding:"required" validate:"required"`
	Required     bool                `json:"required"`

	SkipConditions domain.SkipConditions `json:"skipConditions"`
}

type StageUpdating struct {
	ID types.ID `json:"id" binding:"required" validate:"required"`

	Name        string `json:"name" binding:"required" validate:"required"`
	Description string `json:"description"`
	ThemeColor  string `json:"themeColor"`

	Order  int              `json:"order" binding:"required" validate:"required"`
	Status status.Status    `json:"status" binding:"required" validate:"required"`
	Kind   domain.StageKind `json:"kind"`

	MinDurationHours int `json:"minDurationHours"`
	MaxDurationHours int `json:"maxDurationHours"`

	IsInitial bool `json:"isInitial"`
}

type TransitionCreation struct {
	FromStageID types.ID `json:"fromStageId" binding:"required" validate:"required"`
	ToStageID   types.ID `json:"toStageId" binding:"required" validate:"required"`

	TriggerQuestionID types.ID `json:"triggerQuestionId"`
	TriggerValue      string   `json:"triggerValue"`
	IsAutomatic       bool     `json:"isAutomatic"`
}

type TransitionUpdating struct {
	TriggerQuestionID types.ID `json:"triggerQuestionId"`
	TriggerValue      string   `json:"triggerValue"`
	IsAutomatic       bool     `json:"isAutomatic"`
}

type TransitionQuery struct {
	CompanyID   types.ID `json:"companyId" form:"companyId"`
	FromStageID types.ID `json:"fromStageId" form:"fromStageId"`
	ToStageID   types.ID `json:"toStageId" form:"toStageId"`
}
