package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/models"
	"blogpp/testutil"
)

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store), auth.LoadPrincipal(db))

	router.POST("/login/:username", func(c *gin.Context) {
		var user models.User
		if err := db.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		if err := auth.Login(c, &user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.POST("/logout", func(c *gin.Context) {
		auth.Logout(c)
		c.Status(http.StatusOK)
	})
	router.GET("/me", auth.RequireAuth, func(c *gin.Context) {
		c.String(http.StatusOK, auth.Current(c).Username)
	})
	return router
}

func doRequest(router *gin.Engine, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPasswordHashing(t *testing.T) {
	auth.Cost = bcrypt.MinCost

	hash, err := auth.HashPassword("testpassword")
	require.NoError(t, err)

	assert.True(t, auth.CheckPasswordHash("testpassword", hash))
	assert.False(t, auth.CheckPasswordHash("wrongpassword", hash))
}

func TestRequireAuth_Anonymous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db)

	w := doRequest(router, "GET", "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestUser(t, db, "alice")
	router := setupTestRouter(db)

	w := doRequest(router, "POST", "/login/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = doRequest(router, "GET", "/me", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = doRequest(router, "POST", "/logout", cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "GET", "/me", w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoadPrincipal_DeletedUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, "alice")
	router := setupTestRouter(db)

	w := doRequest(router, "POST", "/login/alice", nil)
	cookies := w.Result().Cookies()

	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	w = doRequest(router, "GET", "/me", cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrincipalIs(t *testing.T) {
	var anon *auth.Principal
	assert.False(t, anon.Is(1))
	assert.True(t, (&auth.Principal{UserID: 1}).Is(1))
	assert.Nil(t, auth.FromUser(nil))
}
