package servehttp

import (
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/domain/job"
	"jobflow/misc"
	"jobflow/session"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterJobHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/jobs", middleWares...)

	handler := &jobHandler{
		validator: validator.New(),
	}

	g.GET("", handler.handleQueryJobs)
	g.POST("", handler.handleCreateJob)
	g.GET(":id", handler.handleDetailJob)
	g.PUT(":id", handler.handleUpdateJob)
	g.DELETE(":id", handler.handleDeleteJob)

	g.GET(":id/current-question", handler.handleCurrentQuestion)
	g.POST(":id/responses", handler.handleSubmitResponse)
	g.POST(":id/transitions", handler.handleManualTransition)
	g.GET(":id/timeline", handler.handleTimeline)
}

type jobHandler struct {
	validator *validator.Validate
}

func (h *jobHandler) handleQueryJobs(c *gin.Context) {
	query := domain.JobQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	jobs, err := job.QueryJobsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *jobHandler) handleCreateJob(c *gin.Context) {
	creation := domain.JobCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := job.CreateJobFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *jobHandler) handleDetailJob(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	detail, err := job.DetailJobFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *jobHandler) handleUpdateJob(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	updating := domain.JobUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	updated, err := job.UpdateJobFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *jobHandler) handleDeleteJob(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	err = job.DeleteJobFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *jobHandler) handleCurrentQuestion(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	result, err := job.CurrentQuestionFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *jobHandler) handleSubmitResponse(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	creation := job.ResponseCreation{}
	err = c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	creation.JobID = id
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	result, err := job.SubmitResponseFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *jobHandler) handleManualTransition(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	creation := job.ManualTransitionCreation{}
	err = c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	creation.JobID = id
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	entry, err := job.ManualTransitionFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *jobHandler) handleTimeline(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	s := session.ExtractSessionFromGinContext(c)
	if c.Query("enhanced") == "true" {
		result, err := job.EnhancedTimelineFunc(id, s)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	entries, err := job.TimelineFunc(id, s)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, entries)
}
