package job_test

import (
	"context"
	"errors"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/job"
	"jobflow/domain/status"
	"jobflow/testinfra"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func TestSubmitResponse(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should transit when the answered question triggers an edge", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		result, err := job.SubmitResponse(&job.ResponseCreation{
			JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes",
		}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.progress.ID))
		Expect(result.Job.Status).To(Equal(status.Active))
		Expect(result.AuditEntry).ToNot(BeNil())
		Expect(result.AuditEntry.FromStageID).To(Equal(f.lead.ID))
		Expect(result.AuditEntry.ToStageID).To(Equal(f.progress.ID))
		Expect(result.AuditEntry.TriggerSource).To(Equal(domain.TriggerSourceQuestionResponse))
		Expect(result.AuditEntry.TriggerQuestionID).To(Equal(f.quoteAccepted.ID))
		Expect(result.AuditEntry.TriggerValue).To(Equal("Yes"))
		Expect(result.AuditEntry.ActorID).To(Equal(s.Identity.ID))
	})

	t.Run("should stay put when the answer matches no edge", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		result, err := job.SubmitResponse(&job.ResponseCreation{
			JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "No",
		}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.lead.ID))
		Expect(result.AuditEntry).To(BeNil())
	})

	t.Run("should not transit while required unskipped questions remain", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		// residential jobs answer the permit question too
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Fence", CompanyID: 100, JobType: "residential"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		assert.Nil(t, err)

		result, err := job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.progress.ID))
		Expect(result.AuditEntry).To(BeNil())
		Expect(len(result.RemainingQuestions)).To(Equal(1))
		Expect(result.RemainingQuestions[0].ID).To(Equal(f.permitGranted.ID))

		// the permit answer completes the stage but triggers no edge, the
		// job stays put awaiting an answer on the trigger question
		result, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.permitGranted.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.progress.ID))
		Expect(result.AuditEntry).To(BeNil())
		Expect(len(result.RemainingQuestions)).To(Equal(0))

		// re-confirming the trigger answer on the now complete stage fires
		// the edge
		result, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.done.ID))
		Expect(result.Job.Status).To(Equal(status.Completed))
		Expect(result.AuditEntry).ToNot(BeNil())
		Expect(result.AuditEntry.TriggerQuestionID).To(Equal(f.workDone.ID))
	})

	t.Run("should skip questions excluded for the job type", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		// the permit question is skipped for commercial jobs
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		assert.Nil(t, err)

		result, err := job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.done.ID))
		Expect(result.AuditEntry).ToNot(BeNil())
	})

	t.Run("should treat identical resubmission after the move as a no-op", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		assert.Nil(t, err)

		result, err := job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.progress.ID))
		Expect(result.AuditEntry).To(BeNil())

		// exactly one transition happened
		db := testDatabase.DS.GormDB(context.Background())
		var auditCount int
		Expect(db.Model(&domain.StageAuditEntry{}).Count(&auditCount).Error).To(BeNil())
		Expect(auditCount).To(Equal(1))

		// a different value for a question outside the current stage is rejected
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "No"}, s)
		Expect(err).To(Equal(bizerror.ErrQuestionNotInStage))
	})

	t.Run("should reject a question that is not part of the current stage", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
		Expect(err).To(Equal(bizerror.ErrQuestionNotInStage))
	})

	t.Run("should validate the value against the response type", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "maybe"}, s)
		var invalid *bizerror.ErrResponseValueInvalid
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(invalid.QuestionID).To(Equal(f.quoteAccepted.ID))
		Expect(invalid.Value).To(Equal("maybe"))
	})

	t.Run("should replace the active response on resubmission within the stage", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "No"}, s)
		assert.Nil(t, err)
		result, err := job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		Expect(err).To(BeNil())
		Expect(result.Job.CurrentStageID).To(Equal(f.progress.ID))

		db := testDatabase.DS.GormDB(context.Background())
		var responses []domain.JobResponse
		Expect(db.Where("job_id = ? AND question_id = ?", detail.ID, f.quoteAccepted.ID).Find(&responses).Error).To(BeNil())
		Expect(len(responses)).To(Equal(1))
		Expect(responses[0].Value).To(Equal("Yes"))
	})

	t.Run("should forbid responders outside the company", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"},
			testinfra.BuildSession(20, domain.CompanyRoleMember+"_100"))
		assert.Nil(t, err)

		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"},
			testinfra.BuildSession(21, domain.CompanyRoleMember+"_200"))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should serialize concurrent submissions on the same job", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		assert.Nil(t, err)

		// both race on the last applicable question: the row lock makes one
		// submission the mover, the other lands as a no-op confirmation
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			Expect(err).To(BeNil())
		}

		updated, err := job.DetailJob(detail.ID, s)
		Expect(err).To(BeNil())
		Expect(updated.CurrentStageID).To(Equal(f.done.ID))

		// exactly one transition out of the work stage was recorded
		db := testDatabase.DS.GormDB(context.Background())
		var auditCount int
		Expect(db.Model(&domain.StageAuditEntry{}).Where("from_stage_id = ?", f.progress.ID).Count(&auditCount).Error).To(BeNil())
		Expect(auditCount).To(Equal(1))
	})
}

func TestCurrentQuestion(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should report the next question and the configured next stage", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		result, err := job.CurrentQuestion(detail.ID, s)
		Expect(err).To(BeNil())
		Expect(result.CurrentQuestion).ToNot(BeNil())
		Expect(result.CurrentQuestion.ID).To(Equal(f.quoteAccepted.ID))
		Expect(result.CanProceed).To(BeFalse())
		Expect(result.NextStagePreview).ToNot(BeNil())
		Expect(result.NextStagePreview.ID).To(Equal(f.progress.ID))
	})

	t.Run("should report a question-free stage as ready to proceed", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleMember+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.quoteAccepted.ID, Value: "Yes"}, s)
		assert.Nil(t, err)
		_, err = job.SubmitResponse(&job.ResponseCreation{JobID: detail.ID, QuestionID: f.workDone.ID, Value: "Yes"}, s)
		assert.Nil(t, err)

		// the job reached the terminal stage which has no questions or edges
		result, err := job.CurrentQuestion(detail.ID, s)
		Expect(err).To(BeNil())
		Expect(result.CurrentQuestion).To(BeNil())
		Expect(result.CanProceed).To(BeTrue())
		Expect(result.NextStagePreview).To(BeNil())
	})
}

func TestManualTransition(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should follow a configured manual edge without waiting for questions", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleManager+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		entry, err := job.ManualTransition(&job.ManualTransitionCreation{JobID: detail.ID, ToStageID: f.cancelled.ID}, s)
		Expect(err).To(BeNil())
		Expect(entry.FromStageID).To(Equal(f.lead.ID))
		Expect(entry.ToStageID).To(Equal(f.cancelled.ID))
		Expect(entry.TriggerSource).To(Equal(domain.TriggerSourceManualOverride))

		updated, err := job.DetailJob(detail.ID, s)
		Expect(err).To(BeNil())
		Expect(updated.CurrentStageID).To(Equal(f.cancelled.ID))
		Expect(updated.Status).To(Equal(status.Cancelled))
	})

	t.Run("should reject a target without a configured edge", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		f := buildCompanyFlow(t, 100)

		s := testinfra.BuildSession(20, domain.CompanyRoleManager+"_100")
		detail, err := job.CreateJob(&domain.JobCreation{Name: "Roof", CompanyID: 100, JobType: "commercial"}, s)
		assert.Nil(t, err)

		entry, err := job.ManualTransition(&job.ManualTransitionCreation{JobID: detail.ID, ToStageID: f.done.ID}, s)
		Expect(entry).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrUnknownTransition))
	})
}
