package job

import (
	"errors"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/flow"
	"jobflow/persistence"
	"jobflow/session"
	"strconv"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"golang.org/x/time/rate"
)

var (
	SubmitResponseFunc  = SubmitResponse
	CurrentQuestionFunc = CurrentQuestion

	submitRetryLimiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
)

const submitMaxAttempts = 3

const dateLayout = "2006-01-02"

// SubmitResponse records an answer and, when the current stage is complete,
// attempts a transition, all in one transaction. Conflicts with concurrent
// submissions for the same job are retried a bounded number of times before
// being surfaced.
func SubmitResponse(c *ResponseCreation, s *session.Session) (*SubmitResult, error) {
	var result *SubmitResult
	var err error
	for attempt := 0; attempt < submitMaxAttempts; attempt++ {
		if attempt > 0 {
			if err = submitRetryLimiter.Wait(sessionContext(s)); err != nil {
				return nil, err
			}
		}
		result, err = submitResponseOnce(c, s)
		if !errors.Is(err, bizerror.ErrConcurrencyConflict) {
			break
		}
	}
	return result, err
}

func submitResponseOnce(c *ResponseCreation, s *session.Session) (*SubmitResult, error) {
	source := c.Source
	if source == "" {
		source = domain.ResponseSourceOperator
	}

	result := SubmitResult{}
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		j := domain.Job{}
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where(&domain.Job{ID: c.JobID}).First(&j).Error; err != nil {
			return err
		}
		if s == nil || !s.HasCompanyViewPerm(j.CompanyID) {
			return bizerror.ErrForbidden
		}

		question := domain.StageQuestion{}
		if err := tx.Where(&domain.StageQuestion{ID: c.QuestionID}).First(&question).Error; err != nil {
			return err
		}

		if question.StageID != j.CurrentStageID {
			// a resubmission of the answer that already moved the job is a
			// no-op confirmation, anything else is rejected
			existing := domain.JobResponse{}
			err := tx.Where(&domain.JobResponse{JobID: c.JobID, QuestionID: c.QuestionID}).First(&existing).Error
			if err == nil && existing.Value == c.Value {
				result.Job = j
				result.RemainingQuestions = []domain.StageQuestion{}
				return nil
			}
			return bizerror.ErrQuestionNotInStage
		}

		if err := validateResponseValue(&question, c.Value); err != nil {
			return err
		}

		if err := upsertResponse(tx, c, source, s); err != nil {
			return err
		}

		var responses []domain.JobResponse
		if err := tx.Where(&domain.JobResponse{JobID: j.ID}).Find(&responses).Error; err != nil {
			return err
		}
		questions, err := flow.QuestionsForStage(tx, j.CurrentStageID)
		if err != nil {
			return err
		}
		remaining := flow.RemainingQuestions(questions, &j, responses)
		result.RemainingQuestions = remaining

		if len(remaining) > 0 {
			result.Job = j
			return nil
		}

		entry, err := attemptTransition(tx, &j, &transitionTrigger{
			source:     domain.TriggerSourceQuestionResponse,
			questionID: c.QuestionID,
			value:      c.Value,
		}, s)
		if err != nil {
			return err
		}
		result.Job = j
		result.AuditEntry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func upsertResponse(tx *gorm.DB, c *ResponseCreation, source domain.ResponseSource, s *session.Session) error {
	metadata := c.Metadata
	if metadata == nil {
		metadata = domain.ResponseMetadata{}
	}
	now := types.CurrentTimestamp()

	existing := domain.JobResponse{}
	err := tx.Where(&domain.JobResponse{JobID: c.JobID, QuestionID: c.QuestionID}).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.JobResponse{
			JobID:      c.JobID,
			QuestionID: c.QuestionID,

			Value:    c.Value,
			Metadata: metadata,

			ResponderID:   s.Identity.ID,
			ResponderName: s.Identity.Name,
			Source:        source,

			UpdateTime: now,
		}).Error
	}
	if err != nil {
		return err
	}

	// replace the active answer, never duplicate it
	return tx.Model(&domain.JobResponse{}).
		Where("job_id = ? AND question_id = ?", c.JobID, c.QuestionID).
		Updates(map[string]interface{}{
			"value":          c.Value,
			"metadata":       metadata,
			"responder_id":   s.Identity.ID,
			"responder_name": s.Identity.Name,
			"source":         source,
			"update_time":    now,
		}).Error
}

func validateResponseValue(question *domain.StageQuestion, value string) error {
	switch question.ResponseType {
	case domain.ResponseTypeYesNo:
		if value != "Yes" && value != "No" {
			return &bizerror.ErrResponseValueInvalid{QuestionID: question.ID, Value: value, Expect: "Yes or No"}
		}
	case domain.ResponseTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return &bizerror.ErrResponseValueInvalid{QuestionID: question.ID, Value: value, Expect: "a number"}
		}
	case domain.ResponseTypeDate:
		if _, err := time.Parse(dateLayout, value); err != nil {
			return &bizerror.ErrResponseValueInvalid{QuestionID: question.ID, Value: value, Expect: "a date formatted " + dateLayout}
		}
	case domain.ResponseTypeText, domain.ResponseTypeFile:
		if value == "" {
			return &bizerror.ErrResponseValueInvalid{QuestionID: question.ID, Value: value, Expect: "a non empty value"}
		}
	}
	return nil
}

// CurrentQuestion reports where the job stands inside its current stage:
// the next question to answer, everything still remaining, whether the
// stage is complete, and the first configured next stage.
func CurrentQuestion(jobID types.ID, s *session.Session) (*CurrentQuestionResult, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	j := domain.Job{}
	if err := db.Where(&domain.Job{ID: jobID}).First(&j).Error; err != nil {
		return nil, err
	}
	if !s.HasCompanyViewPerm(j.CompanyID) {
		return nil, bizerror.ErrForbidden
	}

	questions, err := flow.QuestionsForStage(db, j.CurrentStageID)
	if err != nil {
		return nil, err
	}
	var responses []domain.JobResponse
	if err := db.Where(&domain.JobResponse{JobID: j.ID}).Find(&responses).Error; err != nil {
		return nil, err
	}

	remaining := flow.RemainingQuestions(questions, &j, responses)
	result := CurrentQuestionResult{
		RemainingQuestions: remaining,
		CanProceed:         len(remaining) == 0,
	}
	if len(remaining) > 0 {
		result.CurrentQuestion = &remaining[0]
	}

	var edges []domain.StageTransition
	if err := db.Where("from_stage_id = ?", j.CurrentStageID).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) > 0 {
		next := domain.Stage{}
		if err := db.Where(&domain.Stage{ID: edges[0].ToStageID}).First(&next).Error; err != nil {
			return nil, err
		}
		result.NextStagePreview = &next
	}

	return &result, nil
}
