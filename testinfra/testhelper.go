package testinfra

import (
	"context"
	"io/ioutil"
	"jobflow/session"
	"net/http"
	"net/http/httptest"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

// BuildSession builds a session carrying the given perms, e.g.
// "manager_100", "member_200".
func BuildSession(uid types.ID, perms ...string) *session.Session {
	return &session.Session{
		Token:    "test_token_" + uid.String(),
		Identity: session.Identity{ID: uid, Name: "user" + uid.String()},
		Perms:    perms,
		Context:  context.Background(),
	}
}

// ExecuteRequest fires a request against the engine and returns the
// response status, body and headers.
func ExecuteRequest(req *http.Request, engine *gin.Engine) (int, string, http.Header) {
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)

	bodyBytes, err := ioutil.ReadAll(resp.Result().Body)
	Expect(err).To(BeNil())
	return resp.Result().StatusCode, string(bodyBytes), resp.Result().Header
}

// SessionFilter injects a fixed session into every request, standing in
// for the real authentication middleware in handler tests.
func SessionFilter(s *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.InjectSessionIntoGinContext(c, s)
		c.Next()
	}
}
