package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// StageTransition is a configured directed edge between two stages of the
// same scope. A self edge (FromStageID == ToStageID) is never persisted.
// Configuration order is id order: ids are creation ordered, and when more
// than one edge matches a trigger the first one wins.
type StageTransition struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	CompanyID types.ID `json:"companyId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	FromStageID types.ID `json:"fromStageId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ToStageID   types.ID `json:"toStageId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	// TriggerQuestionID 0 means the edge has no trigger condition
	TriggerQuestionID types.ID `json:"triggerQuestionId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TriggerValue      string   `json:"triggerValue"`
	IsAutomatic       bool     `json:"isAutomatic"`

	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}
