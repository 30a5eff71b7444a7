package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AyushAagrwal/DataStatX/internal/session"
)

const (
	SessionCookie = "datastatx_session"
	SessionHeader = "X-Session-ID"
	SessionIDKey  = "session_id"
)

// Session attaches a session id to every request. The header wins over the
// cookie; unknown or malformed ids are replaced with a fresh one.
func Session(ttl time.Duration) gin.HandlerFunc {
	maxAge := int(ttl / time.Second)
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(SessionCookie)
		}
		if !session.ValidID(id) {
			id = session.NewID()
		}
		c.Set(SessionIDKey, id)
		c.Header(SessionHeader, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, maxAge, "/", "", false, true)
		c.Next()
	}
}
