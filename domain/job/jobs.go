package job

import (
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/flow"
	"jobflow/event"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	jobIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateJobFunc = CreateJob
	DetailJobFunc = DetailJob
	QueryJobsFunc = QueryJobs
	UpdateJobFunc = UpdateJob
	DeleteJobFunc = DeleteJob
)

// CreateJob places a new job into the explicit initial stage of its
// company's effective stage set.
func CreateJob(c *domain.JobCreation, s *session.Session) (*domain.JobDetail, error) {
	if !s.HasRoleSuffix("_" + c.CompanyID.String()) {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	var detail *domain.JobDetail
	var ev *event.EventRecord

	err1 := db.Transaction(func(tx *gorm.DB) error {
		stages, err := flow.ResolveStagesWithDB(tx, c.CompanyID)
		if err != nil {
			return err
		}
		var initial *domain.Stage
		for i := range stages {
			if stages[i].IsInitial {
				initial = &stages[i]
				break
			}
		}
		if initial == nil {
			return bizerror.ErrStageConfigMissing
		}

		now := types.CurrentTimestamp()
		detail = &domain.JobDetail{
			Job: domain.Job{
				ID:   idgen.NextID(jobIdWorker),
				Name: c.Name,

				CompanyID: c.CompanyID,
				JobType:   c.JobType,

				CurrentStageID: initial.ID,
				StageEnteredAt: now,
				Status:         initial.Status,

				CreatorID:  s.Identity.ID,
				CreateTime: now,
			},
			CurrentStage: *initial,
		}
		if err := tx.Create(&detail.Job).Error; err != nil {
			return err
		}

		ev, err = event.CreateEvent("job", detail.ID, detail.Name, event.EventCategoryCreated, nil, &s.Identity, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}

	return detail, nil
}

func DetailJob(id types.ID, s *session.Session) (*domain.JobDetail, error) {
	detail := domain.JobDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	if err := db.Where(&domain.Job{ID: id}).First(&detail.Job).Error; err != nil {
		return nil, err
	}
	if !s.HasCompanyViewPerm(detail.CompanyID) {
		return nil, bizerror.ErrForbidden
	}

	if detail.CurrentStageID != 0 {
		if err := db.Where(&domain.Stage{ID: detail.CurrentStageID}).First(&detail.CurrentStage).Error; err != nil {
			return nil, err
		}
	}
	return &detail, nil
}

func QueryJobs(query *domain.JobQuery, s *session.Session) (*[]domain.Job, error) {
	var jobs []domain.Job
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	q := db.Where(domain.Job{CompanyID: query.CompanyID})
	if query.Name != "" {
		q = q.Where("name like ?", "%"+query.Name+"%")
	}
	if len(query.Statuses) > 0 {
		q = q.Where("status in (?)", query.Statuses)
	}

	visibleCompanies := s.VisibleCompanies()
	if len(visibleCompanies) == 0 {
		return &[]domain.Job{}, nil
	}
	q = q.Where("company_id in (?)", visibleCompanies).Order("create_time ASC")
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}

	return &jobs, nil
}

func UpdateJob(id types.ID, u *domain.JobUpdating, s *session.Session) (*domain.Job, error) {
	var updated domain.Job
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err1 := db.Transaction(func(tx *gorm.DB) error {
		origin, err := findJobAndCheckPerms(tx, id, s)
		if err != nil {
			return err
		}

		if err := tx.Model(&domain.Job{}).Where(&domain.Job{ID: id}).
			Update(&domain.Job{Name: u.Name, JobType: u.JobType}).Error; err != nil {
			return err
		}

		ev, err = event.CreateEvent("job", origin.ID, origin.Name, event.EventCategoryPropertyUpdated,
			[]event.UpdatedProperty{{
				PropertyName: "Name", PropertyDesc: "Name",
				OldValue: origin.Name, OldValueDesc: origin.Name,
				NewValue: u.Name, NewValueDesc: u.Name,
			}},
			&s.Identity, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.Job{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}

	return &updated, nil
}

// DeleteJob removes the job together with its responses and audit trail.
func DeleteJob(id types.ID, s *session.Session) error {
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err1 := db.Transaction(func(tx *gorm.DB) error {
		j, err := findJobAndCheckPerms(tx, id, s)
		if err != nil {
			return err
		}

		ev, err = event.CreateEvent("job", j.ID, j.Name, event.EventCategoryDeleted, nil, &s.Identity, tx)
		if err != nil {
			return err
		}

		if err := tx.Delete(domain.Job{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.JobResponse{}, "job_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(domain.StageAuditEntry{}, "job_id = ?", id).Error
	})
	if err1 != nil {
		return err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return nil
}

func findJobAndCheckPerms(db *gorm.DB, id types.ID, s *session.Session) (*domain.Job, error) {
	var j domain.Job
	if err := db.Where(&domain.Job{ID: id}).First(&j).Error; err != nil {
		return nil, err
	}
	if s == nil || !s.HasRoleSuffix("_"+j.CompanyID.String()) {
		return nil, bizerror.ErrForbidden
	}
	return &j, nil
}
