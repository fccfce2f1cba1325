package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecoveryRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(observability.NewNopLogger()))
	router.GET("/v1/panic", func(_ *gin.Context) {
		panic("test panic")
	})
	router.GET("/panic", func(_ *gin.Context) {
		panic(errors.New("page panic"))
	})
	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func TestErrorRecoveryMiddleware_APIPanic(t *testing.T) {
	router := newRecoveryRouter()

	req, _ := http.NewRequest("GET", "/v1/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(contextutils.ErrorCodeInternalError), body["code"])
	assert.Equal(t, string(contextutils.SeverityFatal), body["severity"])
}

func TestErrorRecoveryMiddleware_PagePanic(t *testing.T) {
	router := newRecoveryRouter()

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `dir="rtl"`)
	assert.Contains(t, w.Body.String(), string(contextutils.ErrorCodeInternalError))
}

func TestErrorRecoveryMiddleware_NormalRequest(t *testing.T) {
	router := newRecoveryRouter()

	req, _ := http.NewRequest("GET", "/normal", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
}

func TestErrorRecoveryMiddleware_NilLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil))
	router.GET("/v1/panic", func(_ *gin.Context) { panic(42) })

	req, _ := http.NewRequest("GET", "/v1/panic", nil)
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() { router.ServeHTTP(w, req) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
