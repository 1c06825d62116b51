package sessions

import (
	"jobflow/account"
	"jobflow/bizerror"
	"jobflow/misc"
	"jobflow/persistence"
	"jobflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func RegisterSessionsHandler(r *gin.Engine) {
	g := r.Group("/v1/sessions")
	g.POST("", SimpleLoginHandler)
	g.DELETE("", SimpleLogoutHandler)
}

func RegisterSessionHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	g.GET("", DetailSessionHandler)
}

func SimpleLogoutHandler(c *gin.Context) {
	token, _ := c.Cookie(session.KeySecToken) // ErrNoCookie
	if token != "" {
		session.TokenCache.Delete(token)
	}
	c.SetCookie(session.KeySecToken, "", -1, "/", "", false, false)
	c.AbortWithStatus(http.StatusNoContent)
}

func SimpleLoginHandler(c *gin.Context) {
	login := LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: err.Error()})
		return
	}
	identity := session.Identity{}
	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	if err := db.Model(&account.User{}).
		Where(&account.User{Name: login.Name, Secret: account.HashSha256(login.Password)}).
		Scan(&identity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			panic(bizerror.ErrUnauthenticated)
		}
		c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "common.internal_server_error", Message: err.Error()})
		return
	}
	token := uuid.New().String()
	s := session.Session{Token: token, Identity: identity, Perms: account.LoadPermFunc(identity.ID), SigningTime: time.Now()}
	session.TokenCache.Set(token, &s, cache.DefaultExpiration)

	c.SetCookie(session.KeySecToken, token, int(session.TokenExpiration/time.Second), "/", "", false, false)
	c.JSON(http.StatusOK, &s)
}

// DetailSessionHandler returns the caller's session with freshly loaded
// perms, extending the cache entry within the original expiration window.
func DetailSessionHandler(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)

	now := time.Now()
	ttl := session.TokenExpiration - now.Sub(s.SigningTime)
	if ttl <= 0 {
		panic(bizerror.ErrUnauthenticated)
	}

	refreshed := session.Session{Token: s.Token, Identity: s.Identity, Perms: account.LoadPermFunc(s.Identity.ID), SigningTime: s.SigningTime}
	session.TokenCache.Set(s.Token, &refreshed, ttl)
	c.JSON(http.StatusOK, &refreshed)
}
