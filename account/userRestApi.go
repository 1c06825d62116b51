package account

import (
	"jobflow/bizerror"
	"jobflow/session"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterUserHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/users", middleWares...)

	handler := &userHandler{
		validator: validator.New(),
	}

	g.GET("", handler.handleQueryUsers)
	g.POST("", handler.handleCreateUser)

	m := r.Group("/v1/company-members", middleWares...)
	m.POST("", handler.handleCreateCompanyMember)
}

type userHandler struct {
	validator *validator.Validate
}

func (h *userHandler) handleQueryUsers(c *gin.Context) {
	users, err := QueryUsersFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *userHandler) handleCreateUser(c *gin.Context) {
	creation := UserCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	info, err := CreateUserFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *userHandler) handleCreateCompanyMember(c *gin.Context) {
	creation := CompanyMemberCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	member, err := CreateCompanyMemberFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, member)
}
