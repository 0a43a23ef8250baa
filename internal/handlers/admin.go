package handlers

import (
	"net/http"
	"strconv"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db        *gorm.DB
	admin     *services.AdminPolicy
	dashboard *services.DashboardService
}

func NewAdminHandler(db *gorm.DB, admin *services.AdminPolicy, dashboard *services.DashboardService) *AdminHandler {
	return &AdminHandler{db: db, admin: admin, dashboard: dashboard}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}

func paged(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.dashboard.Stats(h.db)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListTasks(c *gin.Context) {
	page, pageSize := pageParams(c)
	tasks, total, err := h.admin.ListTasks(
		h.db,
		c.Query("search"),
		c.DefaultQuery("sort_by", "created_at"),
		c.DefaultQuery("order", "desc"),
		page, pageSize,
	)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	paged(c, tasks, total, page, pageSize)
}

func (h *AdminHandler) ListProjects(c *gin.Context) {
	page, pageSize := pageParams(c)
	projects, total, err := h.admin.ListProjects(h.db, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	paged(c, projects, total, page, pageSize)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	users, total, err := h.admin.ListUsers(h.db, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	paged(c, users, total, page, pageSize)
}

func (h *AdminHandler) ListTags(c *gin.Context) {
	page, pageSize := pageParams(c)
	tags, total, err := h.admin.ListTags(h.db, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	paged(c, tags, total, page, pageSize)
}

func (h *AdminHandler) UpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	in, err := decodeTaskUpdate(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.admin.UpdateTask(h.db, id, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *AdminHandler) DeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteTask(h.db, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *AdminHandler) DeleteProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteProject(h.db, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *AdminHandler) SetUserActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.admin.SetUserActive(h.db, id, *req.IsActive); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *req.IsActive})
}
