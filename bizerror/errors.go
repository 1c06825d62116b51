package bizerror

import (
	"errors"
	"net/http"

	"github.com/fundwit/go-commons/types"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// stage configuration problems: fatal to the enclosing request,
	// never silently defaulted to an empty flow
	ErrStageConfigMissing = errors.New("no stage configuration resolvable")
	ErrStageConfigInvalid = errors.New("invalid stage configuration")
	ErrSelfTransition     = errors.New("transition from and to the same stage")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrUnknownTransition  = errors.New("no such transition configured")

	ErrQuestionNotInStage = errors.New("question does not belong to the job's current stage")

	ErrConcurrencyConflict = errors.New("concurrent modification of job state")
	ErrDependencyCleanup   = errors.New("dependency cleanup failed")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

// ErrResponseValueInvalid reports which question/value was rejected.
type ErrResponseValueInvalid struct {
	QuestionID types.ID
	Value      string
	Expect     string
}

func (e *ErrResponseValueInvalid) Error() string {
	return "invalid response value '" + e.Value + "' for question " + e.QuestionID.String() + ", expect " + e.Expect
}
func (e *ErrResponseValueInvalid) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "response.invalid_value", Message: e.Error(),
		Data: map[string]string{"questionId": e.QuestionID.String(), "value": e.Value, "expect": e.Expect}}
}
