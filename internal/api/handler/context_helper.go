package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/internal/api/middleware"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// GetLineUserID returns the LINE user ID verified by the LIFF middleware.
// ok=false means the request carried no ID token, not that it failed.
func GetLineUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.LineUserIDKey)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// respondValidation writes the 400 envelope for a ValidationError in err's
// chain and reports whether it did.
func respondValidation(c *gin.Context, err error) bool {
	ve, ok := pkgerrors.AsValidation(err)
	if !ok {
		return false
	}
	response.ValidationFailed(c, 10001, ve.Error(), ve.Field)
	return true
}

// respondTooLarge writes 413 when err came from the BodyLimit middleware's
// MaxBytesReader and reports whether it did.
func respondTooLarge(c *gin.Context, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
	return true
}
