package handlers

import (
	"net/http"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type SectionHandler struct {
	db             *gorm.DB
	sectionService *services.SectionService
}

func NewSectionHandler(db *gorm.DB, sectionService *services.SectionService) *SectionHandler {
	return &SectionHandler{db: db, sectionService: sectionService}
}

func (h *SectionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var projectID *uuid.UUID
	if raw := c.Query("project"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed project filter"})
			return
		}
		projectID = &id
	}

	sections, err := h.sectionService.List(h.db, userID, projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

func (h *SectionHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	section, err := h.sectionService.Get(h.db, userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

func (h *SectionHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var in services.CreateSectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.sectionService.Create(h.db, userID, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

func (h *SectionHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var in services.UpdateSectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.sectionService.Update(h.db, userID, id, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

func (h *SectionHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.sectionService.Delete(h.db, userID, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *SectionHandler) Duplicate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	section, err := h.sectionService.Duplicate(h.db, userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

func (h *SectionHandler) BulkUpdate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var items []services.BulkSectionUpdate
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sectionService.BulkUpdate(h.db, userID, items); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(items)})
}
