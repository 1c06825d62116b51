package flow

import (
	"context"
	"jobflow/domain"
	"jobflow/domain/status"
	"jobflow/idgen"
	"jobflow/persistence"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// BootstrapPlatformStages seeds the platform default stage set when the
// platform scope is still empty. Companies without a custom configuration
// resolve to this set.
func BootstrapPlatformStages() error {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	return db.Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&domain.Stage{}).Where("company_id = 0").Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().Round(time.Millisecond)

		lead := domain.Stage{ID: idgen.NextID(idWorker), Name: "Lead Qualification",
			Description: "qualify the incoming request", ThemeColor: "grey",
			Order: 1, Status: status.Planning, Kind: domain.StageKindStandard,
			MaxDurationHours: 72, IsInitial: true, CreateTime: now}
		inProgress := domain.Stage{ID: idgen.NextID(idWorker), Name: "Work In Progress",
			Description: "the job is being worked", ThemeColor: "blue",
			Order: 2, Status: status.Active, Kind: domain.StageKindStandard, CreateTime: now}
		completed := domain.Stage{ID: idgen.NextID(idWorker), Name: "Completed",
			Description: "all work done", ThemeColor: "green",
			Order: 3, Status: status.Completed, Kind: domain.StageKindMilestone, CreateTime: now}
		cancelled := domain.Stage{ID: idgen.NextID(idWorker), Name: "Cancelled",
			Description: "the job was abandoned", ThemeColor: "red",
			Order: 4, Status: status.Cancelled, Kind: domain.StageKindStandard, CreateTime: now}

		for _, stage := range []domain.Stage{lead, inProgress, completed, cancelled} {
			stage := stage
			if err := tx.Create(&stage).Error; err != nil {
				return err
			}
		}

		quoteAccepted := domain.StageQuestion{ID: idgen.NextID(idWorker), StageID: lead.ID,
			Text: "Customer accepted the quote?", ResponseType: domain.ResponseTypeYesNo,
			Order: 1, Required: true, SkipConditions: domain.SkipConditions{}, CreateTime: now}
		workDone := domain.StageQuestion{ID: idgen.NextID(idWorker), StageID: inProgress.ID,
			Text: "Work completed?", ResponseType: domain.ResponseTypeYesNo,
			Order: 1, Required: true, SkipConditions: domain.SkipConditions{}, CreateTime: now}
		for _, question := range []domain.StageQuestion{quoteAccepted, workDone} {
			question := question
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}

		edges := []domain.StageTransition{
			{ID: idgen.NextID(idWorker), FromStageID: lead.ID, ToStageID: inProgress.ID,
				TriggerQuestionID: quoteAccepted.ID, TriggerValue: "Yes", CreateTime: now},
			{ID: idgen.NextID(idWorker), FromStageID: inProgress.ID, ToStageID: completed.ID,
				TriggerQuestionID: workDone.ID, TriggerValue: "Yes", CreateTime: now},
			// manual only edges: neither automatic nor trigger gated
			{ID: idgen.NextID(idWorker), FromStageID: lead.ID, ToStageID: cancelled.ID, CreateTime: now},
			{ID: idgen.NextID(idWorker), FromStageID: inProgress.ID, ToStageID: cancelled.ID, CreateTime: now},
		}
		for _, edge := range edges {
			edge := edge
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}

		logrus.Info("platform default stages seeded")
		return nil
	})
}
