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
	QueryTransitionsFunc = QueryTransitions
	CreateTransitionFunc = CreateTransition
	UpdateTransitionFunc = UpdateTransition
	DeleteTransitionFunc = DeleteTransition
)

func QueryTransitions(query *TransitionQuery, s *session.Session) ([]domain.StageTransition, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	// explicit condition, the platform scope queries with company 0
	q := db.Where("company_id = ?", query.CompanyID)
	if query.FromStageID != 0 {
		q = q.Where("from_stage_id = ?", query.FromStageID)
	}
	if query.ToStageID != 0 {
		q = q.Where("to_stage_id = ?", query.ToStageID)
	}

	var transitions []domain.StageTransition
	if err := q.Order("id ASC").Find(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}

func CreateTransition(c *TransitionCreation, s *session.Session) (*domain.StageTransition, error) {
	// a self edge is a configuration error, never persisted
	if c.FromStageID == c.ToStageID {
		return nil, bizerror.ErrSelfTransition
	}

	var created *domain.StageTransition
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		fromStage := domain.Stage{}
		if err := tx.Where(&domain.Stage{ID: c.FromStageID}).First(&fromStage).Error; err != nil {
			return bizerror.ErrUnknownStage
		}
		toStage := domain.Stage{}
		if err := tx.Where(&domain.Stage{ID: c.ToStageID}).First(&toStage).Error; err != nil {
			return bizerror.ErrUnknownStage
		}
		if fromStage.CompanyID != toStage.CompanyID {
			return fmt.Errorf("%w: stages belong to different scopes", bizerror.ErrStageConfigInvalid)
		}
		if err := checkConfigPerms(fromStage.CompanyID, s); err != nil {
			return err
		}

		if c.TriggerQuestionID != 0 {
			question := domain.StageQuestion{}
			if err := tx.Where(&domain.StageQuestion{ID: c.TriggerQuestionID}).First(&question).Error; err != nil {
				return fmt.Errorf("%w: trigger question not found", bizerror.ErrStageConfigInvalid)
			}
			if question.StageID != c.FromStageID {
				return fmt.Errorf("%w: trigger question does not belong to the from stage", bizerror.ErrStageConfigInvalid)
			}
		}

		created = &domain.StageTransition{
			ID:        idgen.NextID(idWorker),
			CompanyID: fromStage.CompanyID,

			FromStageID: c.FromStageID,
			ToStageID:   c.ToStageID,

			TriggerQuestionID: c.TriggerQuestionID,
			TriggerValue:      c.TriggerValue,
			IsAutomatic:       c.IsAutomatic,

			CreateTime: time.Now().Round(time.Millisecond),
		}
		return tx.Create(created).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateFlowCache(created.CompanyID)
	return created, nil
}

func UpdateTransition(id types.ID, u *TransitionUpdating, s *session.Session) (*domain.StageTransition, error) {
	var updated domain.StageTransition
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		transition := domain.StageTransition{}
		if err := tx.Where(&domain.StageTransition{ID: id}).First(&transition).Error; err != nil {
			return err
		}
		if err := checkConfigPerms(transition.CompanyID, s); err != nil {
			return err
		}

		if u.TriggerQuestionID != 0 {
			question := domain.StageQuestion{}
			if err := tx.Where(&domain.StageQuestion{ID: u.TriggerQuestionID}).First(&question).Error; err != nil {
				return fmt.Errorf("%w: trigger question not found", bizerror.ErrStageConfigInvalid)
			}
			if question.StageID != transition.FromStageID {
				return fmt.Errorf("%w: trigger question does not belong to the from stage", bizerror.ErrStageConfigInvalid)
			}
		}

		if err := tx.Model(&domain.StageTransition{}).Where(&domain.StageTransition{ID: id}).
			Updates(map[string]interface{}{
				"trigger_question_id": u.TriggerQuestionID,
				"trigger_value":       u.TriggerValue,
				"is_automatic":        u.IsAutomatic,
			}).Error; err != nil {
			return err
		}
		return tx.Where(&domain.StageTransition{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateFlowCache(updated.CompanyID)
	return &updated, nil
}

func DeleteTransition(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	var companyID types.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		transition := domain.StageTransition{}
		if err := tx.Where(&domain.StageTransition{ID: id}).First(&transition).Error; err != nil {
			return err
		}
		companyID = transition.CompanyID
		if err := checkConfigPerms(transition.CompanyID, s); err != nil {
			return err
		}
		return tx.Delete(domain.StageTransition{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	invalidateFlowCache(companyID)
	return nil
}
