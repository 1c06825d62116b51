package job

import (
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/event"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var ManualTransitionFunc = ManualTransition

type transitionTrigger struct {
	source domain.TriggerSource

	// QUESTION_RESPONSE trigger
	questionID types.ID
	value      string

	// MANUAL_OVERRIDE trigger
	toStageID types.ID
}

// attemptTransition applies the first matching configured edge out of the
// job's current stage, in configuration (id) order. No matching edge is not
// an error: the job stays where it is, awaiting further input. This is the
// only code path that moves a job's current stage pointer.
func attemptTransition(tx *gorm.DB, j *domain.Job, trig *transitionTrigger, s *session.Session) (*domain.StageAuditEntry, error) {
	var edges []domain.StageTransition
	if err := tx.Where("from_stage_id = ?", j.CurrentStageID).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, err
	}

	var matched *domain.StageTransition
	for i := range edges {
		edge := &edges[i]
		if trig.source == domain.TriggerSourceManualOverride {
			if edge.ToStageID == trig.toStageID {
				matched = edge
				break
			}
			continue
		}
		if edge.IsAutomatic && edge.TriggerQuestionID == 0 {
			matched = edge
			break
		}
		if edge.TriggerQuestionID != 0 && edge.TriggerQuestionID == trig.questionID && edge.TriggerValue == trig.value {
			matched = edge
			break
		}
	}
	if matched == nil {
		if trig.source == domain.TriggerSourceManualOverride {
			return nil, bizerror.ErrUnknownTransition
		}
		return nil, nil
	}

	fromStage := domain.Stage{}
	if err := tx.Where(&domain.Stage{ID: matched.FromStageID}).First(&fromStage).Error; err != nil {
		return nil, err
	}
	toStage := domain.Stage{}
	if err := tx.Where(&domain.Stage{ID: matched.ToStageID}).First(&toStage).Error; err != nil {
		return nil, err
	}

	now := types.CurrentTimestamp()
	duration := now.Time().Sub(j.StageEnteredAt.Time())

	// guarded by the expected from stage: a concurrent transition already
	// moved the job when no row matches
	q := tx.Model(&domain.Job{}).Where(&domain.Job{ID: j.ID, CurrentStageID: fromStage.ID}).
		Updates(map[string]interface{}{
			"current_stage_id": toStage.ID,
			"stage_entered_at": now,
			"status":           toStage.Status,
		})
	if err := q.Error; err != nil {
		return nil, err
	}
	if q.RowsAffected != 1 {
		return nil, bizerror.ErrConcurrencyConflict
	}

	entry := &domain.StageAuditEntry{
		ID:    idgen.NextID(jobIdWorker),
		JobID: j.ID,

		FromStageID: fromStage.ID,
		ToStageID:   toStage.ID,
		FromStatus:  fromStage.Status,
		ToStatus:    toStage.Status,

		TriggerSource:     trig.source,
		ActorID:           s.Identity.ID,
		ActorName:         s.Identity.Name,
		TriggerQuestionID: trig.questionID,
		TriggerValue:      trig.value,

		DurationSeconds: int64(duration.Seconds()),

		CreateTime: now,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	if _, err := event.CreateEvent("job", j.ID, j.Name, event.EventCategoryStageTransited,
		[]event.UpdatedProperty{{
			PropertyName: "CurrentStage", PropertyDesc: "CurrentStage",
			OldValue: fromStage.ID.String(), OldValueDesc: fromStage.Name,
			NewValue: toStage.ID.String(), NewValueDesc: toStage.Name,
		}},
		&s.Identity, tx); err != nil {
		return nil, err
	}

	j.CurrentStageID = toStage.ID
	j.StageEnteredAt = now
	j.Status = toStage.Status
	return entry, nil
}

// ManualTransition moves a job along a configured edge on an operator's
// explicit request. It is not gated on question completion, the audit entry
// records the override.
func ManualTransition(c *ManualTransitionCreation, s *session.Session) (*domain.StageAuditEntry, error) {
	var entry *domain.StageAuditEntry
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		j := domain.Job{}
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where(&domain.Job{ID: c.JobID}).First(&j).Error; err != nil {
			return err
		}
		if s == nil || !s.HasRoleSuffix("_"+j.CompanyID.String()) {
			return bizerror.ErrForbidden
		}

		var err error
		entry, err = attemptTransition(tx, &j, &transitionTrigger{
			source:    domain.TriggerSourceManualOverride,
			toStageID: c.ToStageID,
		}, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
