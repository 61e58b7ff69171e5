package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vindel10/vindel-api/internal/middleware"
	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/response"
)

// DeviceIDHeader identifies the browser or app install holding local favorites.
const DeviceIDHeader = "X-Device-ID"

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

// requireClaims writes 401 and returns false when the request is anonymous.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func userIDFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func deviceID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(DeviceIDHeader))
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func pageParams(c *gin.Context) (int, int) {
	return intQuery(c, "page", 1), intQuery(c, "page_size", 20)
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
