package domain

import (
	"jobflow/domain/status"
	"time"

	"github.com/fundwit/go-commons/types"
)

type StageKind string

const (
	StageKindStandard  StageKind = "STANDARD"
	StageKindMilestone StageKind = "MILESTONE"
	StageKindApproval  StageKind = "APPROVAL"
)

// Stage is one ordered step of a job lifecycle. CompanyID 0 means the stage
// belongs to the platform default scope; a company either owns a full stage
// set of its own or uses the platform set, the two are never merged.
type Stage struct {
	ID          types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ThemeColor  string   `json:"themeColor"`

	Order  int           `json:"order" gorm:"unique_index:uni_scope_order"`
	Status status.Status `json:"status"`
	Kind   StageKind     `json:"kind"`

	MinDurationHours int `json:"minDurationHours"`
	MaxDurationHours int `json:"maxDurationHours"`

	CompanyID types.ID `json:"companyId" gorm:"unique_index:uni_scope_order" sql:"type:BIGINT UNSIGNED NOT NULL"`
	IsInitial bool     `json:"isInitial"`

	CreatorID  types.ID  `json:"creatorId"`
	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}

// StageDetail carries a stage with its ordered questions.
type StageDetail struct {
	Stage
	Questions []StageQuestion `json:"questions" gorm:"-"`
}

// StageFlowDetail is the effective configuration of one scope: the ordered
// stages with embedded questions, plus the transition edges between them.
type StageFlowDetail struct {
	CompanyID   types.ID          `json:"companyId"`
	Platform    bool              `json:"platform"`
	Stages      []StageDetail     `json:"stages"`
	Transitions []StageTransition `json:"transitions"`
}

func (d *StageFlowDetail) FindStage(id types.ID) (Stage, bool) {
	for _, s := range d.Stages {
		if s.ID == id {
			return s.Stage, true
		}
	}
	return Stage{}, false
}

func (d *StageFlowDetail) InitialStage() (Stage, bool) {
	for _, s := range d.Stages {
		if s.IsInitial {
			return s.Stage, true
		}
	}
	return Stage{}, false
}
