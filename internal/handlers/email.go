package handlers

import (
	"log"
	"net/http"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EmailHandler struct {
	db            *gorm.DB
	digestService *services.DigestService
}

func NewEmailHandler(db *gorm.DB, digestService *services.DigestService) *EmailHandler {
	return &EmailHandler{db: db, digestService: digestService}
}

// DailyDigest queues digest emails for every active user. Per-user failures
// are logged but never surfaced; the trigger always reports success so a
// stuck mailbox can't wedge the whole run.
func (h *EmailHandler) DailyDigest(c *gin.Context) {
	sent, errs := h.digestService.DispatchAll(c.Request.Context(), h.db)
	for _, err := range errs {
		log.Printf("daily digest: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Daily digest dispatched",
		"sent":    sent,
		"failed":  len(errs),
	})
}
