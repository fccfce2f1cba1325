package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test-session", store))
	r.Use(SessionIDMiddleware(observability.NewNopLogger()))
	r.GET("/check", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":      GetSessionID(c),
			"context": contextutils.GetSessionIDFromContext(c.Request.Context()),
		})
	})
	return r
}

func getSessionCheck(t *testing.T, router *gin.Engine, cookies []*http.Cookie) (map[string]string, []*http.Cookie) {
	t.Helper()
	req, _ := http.NewRequest("GET", "/check", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp, w.Result().Cookies()
}

func TestSessionIDMiddleware_AssignsUUID(t *testing.T) {
	router := setupSessionTestRouter()

	resp, cookies := getSessionCheck(t, router, nil)

	_, err := uuid.Parse(resp["id"])
	assert.NoError(t, err)
	assert.Equal(t, resp["id"], resp["context"], "the id is propagated to the request context")
	assert.NotEmpty(t, cookies)
}

func TestSessionIDMiddleware_StableAcrossRequests(t *testing.T) {
	router := setupSessionTestRouter()

	first, cookies := getSessionCheck(t, router, nil)
	second, _ := getSessionCheck(t, router, cookies)
	other, _ := getSessionCheck(t, router, nil)

	assert.Equal(t, first["id"], second["id"])
	assert.NotEqual(t, first["id"], other["id"], "a browser without the cookie gets its own session")
}

func TestGetSessionID_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetSessionID(c))
}
