package middleware

import (
	"contest_leaderboard/internal/config"
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = &config.Config{JWT: config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour}}

func tokenFor(t *testing.T, role model.UserRole) string {
	t.Helper()
	user := &model.User{Username: "u", Role: role, TeamName: "team"}
	user.ID = "id-" + string(role)
	token, err := util.GenerateJWT(user, testCfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testCfg), func(c *gin.Context) {
		c.String(http.StatusOK, util.ActorFromContext(c).ID)
	})
	r.GET("/admin", AuthMiddleware(testCfg), RoleMiddleware(model.Admin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/maybe", OptionalAuth(testCfg), func(c *gin.Context) {
		if actor := util.ActorFromContext(c); actor != nil {
			c.String(http.StatusOK, actor.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	w := do(r, "/me", tokenFor(t, model.Contestant))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id-contestant", w.Body.String())

	w = do(r, "/me?token="+tokenFor(t, model.Admin), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id-admin", w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", tokenFor(t, model.Contestant)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", tokenFor(t, model.Admin)).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter()

	assert.Equal(t, "anonymous", do(r, "/maybe", "").Body.String())
	assert.Equal(t, "anonymous", do(r, "/maybe", "garbage").Body.String())
	assert.Equal(t, "id-contestant", do(r, "/maybe", tokenFor(t, model.Contestant)).Body.String())
}
