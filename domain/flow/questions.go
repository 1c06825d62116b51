package flow

import (
	"fmt"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	CreateQuestionFunc = CreateQuestion
	DeleteQuestionFunc = DeleteQuestion
)

// QuestionsForStage returns the stage's questions ordered by sequence.
func QuestionsForStage(db *gorm.DB, stageID types.ID) ([]domain.StageQuestion, error) {
	var questions []domain.StageQuestion
	if err := db.Where(&domain.StageQuestion{StageID: stageID}).Order("`order` ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// RemainingQuestions filters out answered and skipped questions, keeping
// sequence order. Pure function over already loaded rows.
func RemainingQuestions(questions []domain.StageQuestion, job *domain.Job, responses []domain.JobResponse) []domain.StageQuestion {
	answered := map[types.ID]bool{}
	for _, r := range responses {
		answered[r.QuestionID] = true
	}

	remaining := []domain.StageQuestion{}
	for _, q := range questions {
		if answered[q.ID] {
			continue
		}
		if ShouldSkip(&q, job, responses) {
			continue
		}
		remaining = append(remaining, q)
	}
	return remaining
}

func CreateQuestion(stageID types.ID, c *QuestionCreation, s *session.Session) (*domain.StageQuestion, error) {
	var created *domain.StageQuestion
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	var companyID types.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		stage := domain.Stage{}
		if err := tx.Where(&domain.Stage{ID: stageID}).First(&stage).Error; err != nil {
			return err
		}
		companyID = stage.CompanyID
		if err := checkConfigPerms(stage.CompanyID, s); err != nil {
			return err
		}

		existing, err := QuestionsForStage(tx, stageID)
		if err != nil {
			return err
		}
		for _, q := range existing {
			if q.Order == c.Order {
				return fmt.Errorf("%w: question order %d is already used", bizerror.ErrStageConfigInvalid, c.Order)
			}
		}

		question, err := buildQuestion(stageID, c, time.Now().Round(time.Millisecond))
		if err != nil {
			return err
		}
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		created = question
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateFlowCache(companyID)
	return created, nil
}

// DeleteQuestion removes a question together with its responses and any
// transition triggered by it, in one transaction.
func DeleteQuestion(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	var companyID types.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		question := domain.StageQuestion{}
		if err := tx.Where(&domain.StageQuestion{ID: id}).First(&question).Error; err != nil {
			return err
		}
		stage := domain.Stage{}
		if err := tx.Where(&domain.Stage{ID: question.StageID}).First(&stage).Error; err != nil {
			return err
		}
		companyID = stage.CompanyID
		if err := checkConfigPerms(stage.CompanyID, s); err != nil {
			return err
		}

		if err := tx.Delete(domain.JobResponse{}, "question_id = ?", id).Error; err != nil {
			return cleanupFailed(err)
		}
		if err := tx.Delete(domain.StageTransition{}, "trigger_question_id = ?", id).Error; err != nil {
			return cleanupFailed(err)
		}
		if err := tx.Delete(domain.StageQuestion{}, "id = ?", id).Error; err != nil {
			return cleanupFailed(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidateFlowCache(companyID)
	return nil
}

func buildQuestion(stageID types.ID, c *QuestionCreation, now time.Time) (*domain.StageQuestion, error) {
	if !c.ResponseType.IsValid() {
		return nil, fmt.Errorf("%w: unknown response type '%s'", bizerror.ErrStageConfigInvalid, c.ResponseType)
	}
	for _, cond := range c.SkipConditions {
		if cond.Rule != domain.SkipByJobType && cond.Rule != domain.SkipByPriorResponse {
			return nil, fmt.Errorf("%w: unknown skip rule '%s'", bizerror.ErrStageConfigInvalid, cond.Rule)
		}
	}
	skipConditions := c.SkipConditions
	if skipConditions == nil {
		skipConditions = domain.SkipConditions{}
	}

	return &domain.StageQuestion{
		ID:      idgen.NextID(idWorker),
		StageID: stageID,

		Text:     c.Text,
		HelpText: c.HelpText,

		ResponseType: c.ResponseType,
		Order:        c.Order,
		Required:     c.Required,

		SkipConditions: skipConditions,

		CreateTime: now,
	}, nil
}
