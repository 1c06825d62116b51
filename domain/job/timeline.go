package job

import (
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/flow"
	"jobflow/persistence"
	"jobflow/session"

	"github.com/fundwit/go-commons/types"
)

var (
	TimelineFunc         = Timeline
	EnhancedTimelineFunc = EnhancedTimeline
)

// Timeline replays a job's realized stage changes, oldest first. A job that
// never transited yields one synthetic entry for its current stage with
// zero duration.
func Timeline(jobID types.ID, s *session.Session) ([]domain.StageAuditEntry, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	j := domain.Job{}
	if err := db.Where(&domain.Job{ID: jobID}).First(&j).Error; err != nil {
		return nil, err
	}
	if !s.HasCompanyViewPerm(j.CompanyID) {
		return nil, bizerror.ErrForbidden
	}

	var entries []domain.StageAuditEntry
	if err := db.Where(&domain.StageAuditEntry{JobID: jobID}).
		Order("create_time ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		entries = []domain.StageAuditEntry{{
			JobID:       j.ID,
			FromStageID: j.CurrentStageID,
			ToStageID:   j.CurrentStageID,
			FromStatus:  j.Status,
			ToStatus:    j.Status,

			TriggerSource:   domain.TriggerSourceAutomatic,
			DurationSeconds: 0,

			CreateTime: j.StageEnteredAt,
		}}
	}
	return entries, nil
}

// EnhancedTimeline derives progress from the audit trail and the size of
// the company's effective stage set.
func EnhancedTimeline(jobID types.ID, s *session.Session) (*EnhancedTimelineResult, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	j := domain.Job{}
	if err := db.Where(&domain.Job{ID: jobID}).First(&j).Error; err != nil {
		return nil, err
	}
	if !s.HasCompanyViewPerm(j.CompanyID) {
		return nil, bizerror.ErrForbidden
	}

	var entries []domain.StageAuditEntry
	if err := db.Where(&domain.StageAuditEntry{JobID: jobID}).
		Order("create_time ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	stages, err := flow.ResolveStagesFunc(j.CompanyID, s)
	if err != nil {
		return nil, err
	}

	result := EnhancedTimelineResult{
		Entries:             entries,
		CompletedStageCount: len(entries),
		TotalStageCount:     len(stages),
	}
	if result.TotalStageCount > 0 {
		result.ProgressPercentage = float64(result.CompletedStageCount) / float64(result.TotalStageCount) * 100
	}
	if result.Entries == nil {
		result.Entries = []domain.StageAuditEntry{}
	}
	return &result, nil
}
