package job

import (
	"jobflow/domain"

	"github.com/fundwit/go-commons/types"
)

type ResponseCreation struct {
	JobID      types.ID `json:"jobId" uri:"jobId" validate:"required"`
	QuestionID types.ID `json:"questionId" binding:"required" validate:"required"`

	Value    string                  `json:"value" binding:"required" validate:"required"`
	Metadata domain.ResponseMetadata `json:"metadata"`
	Source   domain.ResponseSource   `json:"source"`
}

// SubmitResult is the outcome of one response submission: the job as it
// stands after the submission, and the audit entry when a transition fired.
type SubmitResult struct {
	Job                domain.Job              `json:"job"`
	AuditEntry         *domain.StageAuditEntry `json:"auditEntry,omitempty"`
	RemainingQuestions []domain.StageQuestion  `json:"remainingQuestions"`
}

type CurrentQuestionResult struct {
	CurrentQuestion    *domain.StageQuestion  `json:"currentQuestion"`
	RemainingQuestions []domain.StageQuestion `json:"remainingQuestions"`
	CanProceed         bool                   `json:"canProceed"`
	NextStagePreview   *domain.Stage          `json:"nextStagePreview"`
}

type ManualTransitionCreation struct {
	JobID     types.ID `json:"jobId" uri:"jobId" validate:"required"`
	ToStageID types.ID `json:"toStageId" binding:"required" validate:"required"`
}

type EnhancedTimelineResult struct {
	Entries             []domain.StageAuditEntry `json:"entries"`
	CompletedStageCount int                      `json:"completedStageCount"`
	TotalStageCount     int                      `json:"totalStageCount"`
	ProgressPercentage  float64                  `json:"progressPercentage"`
}
