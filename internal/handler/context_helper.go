package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyvault-api/internal/middleware"
	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/internal/service"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/middleware/session"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext identifies the caller for quota and tracking purposes.
func actorFromContext(c *gin.Context) (models.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID() == "" {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	return models.Actor{
		UserID:    claims.UserID(),
		SessionID: session.Value(c),
		UserAgent: c.Request.UserAgent(),
	}, nil
}

func browserSession(c *gin.Context) (string, error) {
	id := session.Value(c)
	if id == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "browser session is required")
	}
	return id, nil
}

func kindParam(c *gin.Context) (models.ResourceKind, error) {
	kind, ok := models.ParseResourceKind(c.Param("kind"))
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "unknown document kind")
	}
	return kind, nil
}

func viewerKey(c *gin.Context, pane string) service.ViewerKey {
	if pane == "" {
		pane = c.Query("pane")
	}
	return service.ViewerKey{BrowserSession: session.Value(c), Pane: pane}
}
