package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fundwit/go-commons/types"
)

type ResponseType string

const (
	ResponseTypeYesNo  ResponseType = "YES_NO"
	ResponseTypeNumber ResponseType = "NUMBER"
	ResponseTypeDate   ResponseType = "DATE"
	ResponseTypeText   ResponseType = "TEXT"
	ResponseTypeFile   ResponseType = "FILE"
)

func (t ResponseType) IsValid() bool {
	switch t {
	case ResponseTypeYesNo, ResponseTypeNumber, ResponseTypeDate, ResponseTypeText, ResponseTypeFile:
		return true
	}
	return false
}

type SkipRule string

const (
	SkipByJobType       SkipRule = "JOB_TYPE_EXCLUSION"
	SkipByPriorResponse SkipRule = "PRIOR_RESPONSE_EQUALS"
)

// SkipCondition is one entry of a question's skip specification. The union
// is closed: Rule selects which of the remaining fields are meaningful.
type SkipCondition struct {
	Rule SkipRule `json:"rule"`

	// SkipByJobType
	JobTypes []string `json:"jobTypes,omitempty"`

	// SkipByPriorResponse
	QuestionID    types.ID `json:"questionId,omitempty"`
	ExpectedValue string   `json:"expectedValue,omitempty"`
}

// SkipConditions entries are ORed: the question is skipped if any one entry
// is satisfied. An empty list means never skip.
type SkipConditions []SkipCondition

func (t SkipConditions) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *SkipConditions) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), c)
}

type StageQuestion struct {
	ID      types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	StageID types.ID `json:"stageId" gorm:"unique_index:uni_stage_order" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Text     string `json:"text"`
	HelpText string `json:"helpText"`

	ResponseType ResponseType `json:"responseType"`
	Order        int          `json:"order" gorm:"unique_index:uni_stage_order"`
	Required     bool         `json:"required"`

	SkipConditions SkipConditions `json:"skipConditions" sql:"type:TEXT"`

	CreateTime time.Time `json:"createTime" sql:"type:DATETIME(3) NOT NULL"`
}
