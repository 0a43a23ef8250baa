package handlers

import (
	"errors"
	"net/http"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// handleServiceError maps service sentinel errors onto HTTP status codes.
// Anything unmapped is a 500 with a generic body so internals don't leak.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Resource not found",
		})
	// Conflict surfaces only after the bounded retry inside the service
	// gave up, so the client sees a server-side failure, not a 4xx.
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "conflict",
			"message": "The operation conflicted with concurrent changes, retry",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong",
		})
	}
}

// currentUserID pulls the authenticated user id set by the auth middleware.
// A missing or malformed value aborts with 401.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthenticated",
			"message": "User not authenticated",
		})
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthenticated",
			"message": "Invalid user identity",
		})
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the :id route parameter. Aborts with 400 when malformed.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "Malformed resource id",
		})
		return uuid.Nil, false
	}
	return id, true
}
