package servehttp_test

import (
	"bytes"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/flow"
	"jobflow/domain/status"
	"jobflow/servehttp"
	"jobflow/session"
	"jobflow/testinfra"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestQueryEffectiveStagesRestAPI(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	servehttp.RegisterStageHandler(router)

	t.Run("should return 400 on a bad company id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/companies/abc/effective-stages", nil)
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid id 'abc'","data":null}`))
	})

	t.Run("should return the effective configuration of the scope", func(t *testing.T) {
		flow.DetailStageFlowFunc = func(companyID types.ID, s *session.Session) (*domain.StageFlowDetail, error) {
			return &domain.StageFlowDetail{CompanyID: companyID, Platform: true,
				Stages: []domain.StageDetail{{Stage: domain.Stage{ID: 10, Name: "Lead Qualification", Order: 1,
					Status: status.Planning, IsInitial: true}}},
				Transitions: []domain.StageTransition{}}, nil
		}
		req := httptest.NewRequest(http.MethodGet, "/v1/companies/100/effective-stages", nil)
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"companyId":"100"`))
		Expect(body).To(ContainSubstring(`"platform":true`))
		Expect(body).To(ContainSubstring(`"isInitial":true`))
	})

	t.Run("should surface a missing configuration as 500", func(t *testing.T) {
		flow.DetailStageFlowFunc = func(companyID types.ID, s *session.Session) (*domain.StageFlowDetail, error) {
			return nil, bizerror.ErrStageConfigMissing
		}
		req := httptest.NewRequest(http.MethodGet, "/v1/companies/100/effective-stages", nil)
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusInternalServerError))
		Expect(body).To(MatchJSON(`{"code":"stage.config_missing","message":"workflow can not be loaded","data":null}`))
	})
}

func TestCreateStageRestAPI(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	servehttp.RegisterStageHandler(router)

	t.Run("should return 400 when failed to bind or validate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/stages", bytes.NewReader([]byte(`bbb`)))
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid character 'b' looking for beginning of value","data":null}`))

		req = httptest.NewRequest(http.MethodPost, "/v1/stages", bytes.NewReader([]byte(`{}`)))
		st, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring(`"code":"common.bad_param"`))
	})

	t.Run("should return the created stage", func(t *testing.T) {
		flow.CreateStageFunc = func(c *flow.StageCreation, s *session.Session) (*domain.StageDetail, error) {
			return &domain.StageDetail{Stage: domain.Stage{ID: 10, Name: c.Name, Order: c.Order,
				Status: c.Status, CompanyID: c.CompanyID, IsInitial: c.IsInitial}}, nil
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/stages",
			bytes.NewReader([]byte(`{"name":"Lead Qualification","order":1,"status":"PLANNING","companyId":"100","isInitial":true}`)))
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusCreated))
		Expect(body).To(ContainSubstring(`"id":"10"`))
		Expect(body).To(ContainSubstring(`"status":"PLANNING"`))
	})

	t.Run("should surface forbidden as 403", func(t *testing.T) {
		flow.CreateStageFunc = func(c *flow.StageCreation, s *session.Session) (*domain.StageDetail, error) {
			return nil, bizerror.ErrForbidden
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/stages",
			bytes.NewReader([]byte(`{"name":"Lead Qualification","order":1,"status":"PLANNING","companyId":"100","isInitial":true}`)))
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusForbidden))
		Expect(body).To(MatchJSON(`{"code":"security.forbidden","message":"access forbidden","data":null}`))
	})
}

func TestTransitionRestAPI(t *testing.T) {
	RegisterTestingT(t)

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	servehttp.RegisterTransitionHandler(router)

	t.Run("should reject a self transition", func(t *testing.T) {
		flow.CreateTransitionFunc = func(c *flow.TransitionCreation, s *session.Session) (*domain.StageTransition, error) {
			return nil, bizerror.ErrSelfTransition
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/transitions",
			bytes.NewReader([]byte(`{"fromStageId":"10","toStageId":"10"}`)))
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"stage.self_transition","message":"transition from and to the same stage","data":null}`))
	})

	t.Run("should return configured edges in configuration order", func(t *testing.T) {
		flow.QueryTransitionsFunc = func(q *flow.TransitionQuery, s *session.Session) ([]domain.StageTransition, error) {
			return []domain.StageTransition{
				{ID: 1, CompanyID: q.CompanyID, FromStageID: 10, ToStageID: 11, TriggerQuestionID: 77, TriggerValue: "Yes"},
				{ID: 2, CompanyID: q.CompanyID, FromStageID: 10, ToStageID: 12},
			}, nil
		}
		req := httptest.NewRequest(http.MethodGet, "/v1/transitions?companyId=100", nil)
		st, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(st).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"triggerQuestionId":"77"`))
		Expect(body).To(ContainSubstring(`"triggerValue":"Yes"`))
	})
}
