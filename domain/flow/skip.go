package flow

import (
	"jobflow/domain"
)

// ShouldSkip reports whether a question is omitted from the flow for this
// job. Entries are ORed; prior-response conditions only ever consult
// answers already recorded, earlier questions are never re-evaluated.
// Deterministic and side-effect free, safe to recompute after every
// response mutation.
func ShouldSkip(question *domain.StageQuestion, job *domain.Job, responses []domain.JobResponse) bool {
	for _, cond := range question.SkipConditions {
		switch cond.Rule {
		case domain.SkipByJobType:
			for _, jobType := range cond.JobTypes {
				if jobType == job.JobType {
					return true
				}
			}
		case domain.SkipByPriorResponse:
			for _, r := range responses {
				if r.QuestionID == cond.QuestionID && r.Value == cond.ExpectedValue {
					return true
				}
			}
		}
	}
	return false
}
