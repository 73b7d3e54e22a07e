// Package session assigns every browser a stable session id backed by a signed
// cookie. Saved and hidden document sets are scoped to this id.
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/pkg/config"
)

const (
	contextKey = "browser_session_id"
	valueKey   = "sid"
)

// NewStore builds the cookie store from configuration.
func NewStore(cfg config.SessionConfig) *sessions.CookieStore {
	keys := [][]byte{[]byte(cfg.HashKey)}
	if cfg.BlockKey != "" {
		keys = append(keys, []byte(cfg.BlockKey))
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Middleware loads or creates the browser session and exposes its id on the context.
func Middleware(store sessions.Store, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, cookieName)
		if err != nil {
			// a cookie signed with rotated keys decodes with an error but still yields a fresh session
			logger.Debug("session cookie rejected", zap.Error(err))
		}

		id, _ := sess.Values[valueKey].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[valueKey] = id
			if err := sess.Save(c.Request, c.Writer); err != nil {
				logger.Warn("failed to persist session cookie", zap.Error(err))
			}
		}

		c.Set(contextKey, id)
		c.Next()
	}
}

// Value returns the browser session id stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithValue stores the id directly; used by tests and internal callers.
func WithValue(c *gin.Context, id string) {
	c.Set(contextKey, id)
}
