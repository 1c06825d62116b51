package servehttp

import (
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/company"
	"jobflow/session"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterCompanyHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/companies", middleWares...)

	handler := &companyHandler{
		validator: validator.New(),
	}

	g.GET("", handler.handleQueryCompanies)
	g.POST("", handler.handleCreateCompany)
}

type companyHandler struct {
	validator *validator.Validate
}

func (h *companyHandler) handleQueryCompanies(c *gin.Context) {
	query := domain.CompanyQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	companies, err := company.QueryCompaniesFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *companyHandler) handleCreateCompany(c *gin.Context) {
	creation := domain.CompanyCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	record, err := company.CreateCompanyFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, record)
}
