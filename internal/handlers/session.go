package handlers

import (
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionIDKey is the cookie session key holding the browser's generation slot id
const SessionIDKey = "sid"

// sessionIDContextKey is the gin context key set by SessionIDMiddleware
const sessionIDContextKey = "lesson_session_id"

// SessionIDMiddleware makes sure every browser session carries a stable id. The id keys the
// session's generation slot and is added to the request context for log correlation.
func SessionIDMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionIDKey).(string)
		if !ok || id == "" {
			id = uuid.NewString()
			session.Set(SessionIDKey, id)
			if err := session.Save(); err != nil {
				logger.Warn(c.Request.Context(), "Failed to save session id", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
		c.Set(sessionIDContextKey, id)
		c.Request = c.Request.WithContext(contextutils.WithSessionID(c.Request.Context(), id))
		c.Next()
	}
}

// GetSessionID returns the id assigned by SessionIDMiddleware, or "" when it did not run
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDContextKey)
}
