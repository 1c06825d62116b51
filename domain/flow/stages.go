package flow

import (
	"errors"
	"fmt"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
	"github.com/sony/sonyflake"
)

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	// effective stage configuration is read-mostly, cache it per company and
	// invalidate on configuration writes
	flowCache = cache.New(5*time.Minute, 1*time.Minute)

	ResolveStagesFunc   = ResolveStages
	DetailStageFlowFunc = DetailStageFlow
	CreateStageFunc     = CreateStage
	UpdateStagesFunc    = UpdateStages
	DeleteStageFunc     = DeleteStage
)

// ResolveStages returns the effective ordered stage list for a company:
// the company's own stages when any exist, otherwise the platform default
// set. The two scopes are never merged.
func ResolveStages(companyID types.ID, s *session.Session) ([]domain.Stage, error) {
	if s != nil && companyID != 0 && !s.HasCompanyViewPerm(companyID) {
		return nil, bizerror.ErrForbidden
	}

	if cached, found := flowCache.Get(companyID.String()); found {
		return cached.([]domain.Stage), nil
	}

	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	stages, err := ResolveStagesWithDB(db, companyID)
	if err != nil {
		return nil, err
	}
	flowCache.Set(companyID.String(), stages, cache.DefaultExpiration)
	return stages, nil
}

// ResolveStagesWithDB bypasses the cache, for use inside transactions that
// must observe the configuration they validate against.
func ResolveStagesWithDB(db *gorm.DB, companyID types.ID) ([]domain.Stage, error) {
	var stages []domain.Stage
	// gorm drops zero value struct fields, the platform scope (company 0)
	// needs the explicit condition
	if err := db.Where("company_id = ?", companyID).Order("`order` ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	if len(stages) == 0 && companyID != 0 {
		if err := db.Where("company_id = 0").Order("`order` ASC").Find(&stages).Error; err != nil {
			return nil, err
		}
	}
	if len(stages) == 0 {
		return nil, bizerror.ErrStageConfigMissing
	}
	return stages, nil
}

// DetailStageFlow returns the effective stages with embedded questions and
// the transitions between them, for one company scope.
func DetailStageFlow(companyID types.ID, s *session.Session) (*domain.StageFlowDetail, error) {
	if s != nil && companyID != 0 && !s.HasCompanyViewPerm(companyID) {
		return nil, bizerror.ErrForbidden
	}

	detail := domain.StageFlowDetail{CompanyID: companyID}
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		stages, err := ResolveStagesWithDB(tx, companyID)
		if err != nil {
			return err
		}
		detail.Platform = stages[0].CompanyID == 0

		stageIds := make([]types.ID, 0, len(stages))
		for _, stage := range stages {
			stageIds = append(stageIds, stage.ID)
			detail.Stages = append(detail.Stages, domain.StageDetail{Stage: stage})
		}

		var questions []domain.StageQuestion
		if err := tx.Where("stage_id in (?)", stageIds).Order("`order` ASC").Find(&questions).Error; err != nil {
			return err
		}
		for i := range detail.Stages {
			for _, q := range questions {
				if q.StageID == detail.Stages[i].ID {
					detail.Stages[i].Questions = append(detail.Stages[i].Questions, q)
				}
			}
		}

		if err := tx.Where("company_id = ?", stages[0].CompanyID).Order("id ASC").
			Find(&detail.Transitions).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func CreateStage(c *StageCreation, s *session.Session) (*domain.StageDetail, error) {
	if err := checkConfigPerms(c.CompanyID, s); err != nil {
		return nil, err
	}
	if !c.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status '%s'", bizerror.ErrStageConfigInvalid, c.Status)
	}
	if c.Order < 1 {
		return nil, fmt.Errorf("%w: order must be positive, got %d", bizerror.ErrStageConfigInvalid, c.Order)
	}
	kind := c.Kind
	if kind == "" {
		kind = domain.StageKindStandard
	}

	now := time.Now().Round(time.Millisecond)
	detail := &domain.StageDetail{
		Stage: domain.Stage{
			ID:          idgen.NextID(idWorker),
			Name:        c.Name,
			Description: c.Description,
			ThemeColor:  c.ThemeColor,

			Order:  c.Order,
			Status: c.Status,
			Kind:   kind,

			MinDurationHours: c.MinDurationHours,
			MaxDurationHours: c.MaxDurationHours,

			CompanyID: c.CompanyID,
			IsInitial: c.IsInitial,

			CreatorID:  s.Identity.ID,
			CreateTime: now,
		},
	}

	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing []domain.Stage
		if err := tx.Where("company_id = ?", c.CompanyID).Find(&existing).Error; err != nil {
			return err
		}
		for _, stage := range existing {
			if stage.Order == c.Order {
				return fmt.Errorf("%w: order %d is already used by stage '%s'",
					bizerror.ErrStageConfigInvalid, c.Order, stage.Name)
			}
		}
		// exactly one initial stage per scope
		if len(existing) == 0 && !c.IsInitial {
			return fmt.Errorf("%w: the first stage of a scope must be the initial stage", bizerror.ErrStageConfigInvalid)
		}
		if len(existing) > 0 && c.IsInitial {
			return fmt.Errorf("%w: scope already has an initial stage", bizerror.ErrStageConfigInvalid)
		}

		if err := tx.Create(&detail.Stage).Error; err != nil {
			return err
		}
		for _, qc := range c.Questions {
			question, err := buildQuestion(detail.ID, &qc, now)
			if err != nil {
				return err
			}
			if err := tx.Create(question).Error; err != nil {
				return err
			}
			detail.Questions = append(detail.Questions, *question)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateFlowCache(c.CompanyID)
	return detail, nil
}

// UpdateStages bulk reorders/updates the stages of one scope. The wanted
// set is validated as a whole: unique orders, exactly one initial stage and
// at least one stage mapped to a terminal status.
func UpdateStages(companyID types.ID, updatings []StageUpdating, s *session.Session) error {
	if err := checkConfigPerms(companyID, s); err != nil {
		return err
	}
	if len(updatings) == 0 {
		return nil
	}

	orders := map[int]bool{}
	initialCount := 0
	terminalCount := 0
	for _, u := range updatings {
		if !u.Status.IsValid() {
			return fmt.Errorf("%w: unknown status '%s'", bizerror.ErrStageConfigInvalid, u.Status)
		}
		if u.Order < 1 {
			return fmt.Errorf("%w: order must be positive, got %d", bizerror.ErrStageConfigInvalid, u.Order)
		}
		if orders[u.Order] {
			return fmt.Errorf("%w: duplicated order %d", bizerror.ErrStageConfigInvalid, u.Order)
		}
		orders[u.Order] = true
		if u.IsInitial {
			initialCount++
		}
		if u.Status.IsTerminal() {
			terminalCount++
		}
	}
	if initialCount != 1 {
		return fmt.Errorf("%w: want exactly one initial stage, got %d", bizerror.ErrStageConfigInvalid, initialCount)
	}
	if terminalCount == 0 {
		return fmt.Errorf("%w: want at least one terminal stage", bizerror.ErrStageConfigInvalid)
	}

	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&domain.Stage{}).Where("company_id = ?", companyID).Count(&count).Error; err != nil {
			return err
		}
		if count != len(updatings) {
			return fmt.Errorf("%w: the update must cover all %d stages of the scope", bizerror.ErrStageConfigInvalid, count)
		}

		// park every row on a temporary order first: the scope's
		// (company_id, order) uniqueness is enforced per statement, a swap
		// would collide with a row not yet moved
		for i, u := range updatings {
			q := tx.Model(&domain.Stage{}).Where("id = ? AND company_id = ?", u.ID, companyID).
				Update("order", -(i + 1))
			if err := q.Error; err != nil {
				return err
			}
			if q.RowsAffected != 1 {
				return bizerror.ErrUnknownStage
			}
		}

		for _, u := range updatings {
			kind := u.Kind
			if kind == "" {
				kind = domain.StageKindStandard
			}
			q := tx.Model(&domain.Stage{}).Where("id = ? AND company_id = ?", u.ID, companyID).
				Updates(map[string]interface{}{
					"name": u.Name, "description": u.Description, "theme_color": u.ThemeColor,
					"order": u.Order, "status": u.Status, "kind": kind,
					"min_duration_hours": u.MinDurationHours, "max_duration_hours": u.MaxDurationHours,
					"is_initial": u.IsInitial,
				})
			if err := q.Error; err != nil {
				return err
			}
			if q.RowsAffected != 1 {
				return bizerror.ErrUnknownStage
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidateFlowCache(companyID)
	return nil
}

// DeleteStage removes a stage together with its questions, the responses to
// those questions and every touching transition, and clears the stage
// pointer of jobs currently parked on it. All of it commits or none of it.
func DeleteStage(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	var companyID types.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		stage := domain.Stage{}
		if err := tx.Where(&domain.Stage{ID: id}).First(&stage).Error; err != nil {
			return err
		}
		companyID = stage.CompanyID
		if err := checkConfigPerms(stage.CompanyID, s); err != nil {
			return err
		}

		var questions []domain.StageQuestion
		if err := tx.Where(&domain.StageQuestion{StageID: id}).Find(&questions).Error; err != nil {
			return cleanupFailed(err)
		}
		questionIds := make([]types.ID, 0, len(questions))
		for _, q := range questions {
			questionIds = append(questionIds, q.ID)
		}
		if len(questionIds) > 0 {
			if err := tx.Delete(domain.JobResponse{}, "question_id in (?)", questionIds).Error; err != nil {
				return cleanupFailed(err)
			}
			if err := tx.Delete(domain.StageTransition{}, "trigger_question_id in (?)", questionIds).Error; err != nil {
				return cleanupFailed(err)
			}
		}
		if err := tx.Delete(domain.StageQuestion{}, "stage_id = ?", id).Error; err != nil {
			return cleanupFailed(err)
		}
		if err := tx.Delete(domain.StageTransition{}, "from_stage_id = ? OR to_stage_id = ?", id, id).Error; err != nil {
			return cleanupFailed(err)
		}
		if err := tx.Model(&domain.Job{}).Where("current_stage_id = ?", id).
			Update("current_stage_id", 0).Error; err != nil {
			return cleanupFailed(err)
		}
		if err := tx.Delete(domain.Stage{}, "id = ?", id).Error; err != nil {
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

func cleanupFailed(err error) error {
	if errors.Is(err, bizerror.ErrDependencyCleanup) {
		return err
	}
	return fmt.Errorf("%w: %v", bizerror.ErrDependencyCleanup, err)
}

func checkConfigPerms(companyID types.ID, s *session.Session) error {
	if s == nil || !s.HasRoleSuffix(domain.CompanyRoleManager+"_"+companyID.String()) {
		return bizerror.ErrForbidden
	}
	return nil
}

func invalidateFlowCache(companyID types.ID) {
	if companyID == 0 {
		// companies without a custom set fall back to the platform scope
		flowCache.Flush()
		return
	}
	flowCache.Delete(companyID.String())
}
