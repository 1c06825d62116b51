package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

type ResponseSource string

const (
	ResponseSourceOperator ResponseSource = "OPERATOR"
	ResponseSourcePublic   ResponseSource = "PUBLIC"
)

type ResponseMetadata map[string]string

func (t ResponseMetadata) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *ResponseMetadata) Scan(v interface{}) error {
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

// JobResponse is the active answer of one job to one question. The composite
// key gives replace-on-conflict semantics: resubmission updates the row, a
// job's progress is fully determined by its set of active responses.
type JobResponse struct {
	JobID      types.ID `json:"jobId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	QuestionID types.ID `json:"questionId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Value    string           `json:"value"`
	Metadata ResponseMetadata `json:"metadata" sql:"type:TEXT"`

	ResponderID   types.ID       `json:"responderId"`
	ResponderName string         `json:"responderName"`
	Source        ResponseSource `json:"source"`

	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}
