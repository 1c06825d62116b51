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

func RegisterTransitionHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/transitions", middleWares...)

	handler := &transitionHandler{
		validator: validator.New(),
	}

	g.GET("", handler.handleQueryTransitions)
	g.POST("", handler.handleCreateTransition)
	g.PUT(":id", handler.handleUpdateTransition)
	g.DELETE(":id", handler.handleDeleteTransition)
}

type transitionHandler struct {
	validator *validator.Validate
}

func (h *transitionHandler) handleQueryTransitions(c *gin.Context) {
	query := flow.TransitionQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	transitions, err := flow.QueryTransitionsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, transitions)
}

func (h *transitionHandler) handleCreateTransition(c *gin.Context) {
	creation := flow.TransitionCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	transition, err := flow.CreateTransitionFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, transition)
}

func (h *transitionHandler) handleUpdateTransition(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	updating := flow.TransitionUpdating{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	transition, err := flow.UpdateTransitionFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, transition)
}

func (h *transitionHandler) handleDeleteTransition(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("id") + "'"})
		return
	}

	err = flow.DeleteTransitionFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}
