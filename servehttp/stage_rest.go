package servehttp

import (
	"jobflow/bizerror"
	"jobflow/domain/flow"
	"jobflow/misc"
	"jobflow/session"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterStageHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1", middleWares...)

	handler := &stageHandler{
		validator: validator.New(),
	}

	g.GET("/companies/:companyId/effective-stages", handler.handleQueryEffectiveStages)

	g.POST("/stages", handler.handleCreateStage)
	g.PUT("/companies/:companyId/stages", handler.handleUpdateStages)
	g.DELETE("/stages/:id", handler.handleDeleteStage)

	g.POST("/stages/:id/questions", handler.handleCreateQuestion)
	g.DELETE("/questions/:id", handler.handleDeleteQuestion)
}

type stageHandler struct {
	validator *validator.Validate
}

func (h *stageHandler) handleQueryEffectiveStages(c *gin.Context) {
	companyID, err := types.ParseID(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("companyId") + "'"})
		return
	}

	detail, err := flow.DetailStageFlowFunc(companyID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *stageHandler) handleCreateStage(c *gin.Context) {
	creation := flow.StageCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	stage, err := flow.CreateStageFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, stage)
}

func (h *stageHandler) handleUpdateStages(c *gin.Context) {
	companyID, err := types.ParseID(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("companyId") + "'"})
		return
	}

	var updatings []flow.StageUpdating
	err = c.ShouldBindBodyWith(&updatings, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	for _, updating := range updatings {
		if err = h.validator.Struct(updating); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	err = flow.UpdateStagesFunc(companyID, updatings, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *stageHandler) handleDeleteStage(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	err = flow.DeleteStageFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *stageHandler) handleCreateQuestion(c *gin.Context) {
	stageID, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	creation := flow.QuestionCreation{}
	err = c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	question, err := flow.CreateQuestionFunc(stageID, &creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *stageHandler) handleDeleteQuestion(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	err = flow.DeleteQuestionFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}
