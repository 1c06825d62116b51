package domain

import (
	"jobflow/domain/status"

	"github.com/fundwit/go-commons/types"
)

type TriggerSource string

const (
	TriggerSourceAutomatic        TriggerSource = "AUTOMATIC"
	TriggerSourceManualOverride   TriggerSource = "MANUAL_OVERRIDE"
	TriggerSourceQuestionResponse TriggerSource = "QUESTION_RESPONSE"
)

// StageAuditEntry records one realized transition of one job. Entries are
// append only: ordered by time they form a contiguous path through the
// configured stage graph, each FromStageID equal to the previous ToStageID.
type StageAuditEntry struct {
	ID    types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	JobID types.ID `json:"jobId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	FromStageID types.ID      `json:"fromStageId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ToStageID   types.ID      `json:"toStageId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	FromStatus  status.Status `json:"fromStatus"`
	ToStatus    status.Status `json:"toStatus"`

	TriggerSource     TriggerSource `json:"triggerSource"`
	ActorID           types.ID      `json:"actorId"`
	ActorName         string        `json:"actorName"`
	TriggerQuestionID types.ID      `json:"triggerQuestionId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TriggerValue      string        `json:"triggerValue"`

	// dwell in the prior stage, computed at write time
	DurationSeconds int64 `json:"durationSeconds"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}
