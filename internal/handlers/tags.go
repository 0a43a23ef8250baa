package handlers

import (
	"net/http"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TagHandler struct {
	db         *gorm.DB
	tagService *services.TagService
}

func NewTagHandler(db *gorm.DB, tagService *services.TagService) *TagHandler {
	return &TagHandler{db: db, tagService: tagService}
}

func (h *TagHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tags, err := h.tagService.List(h.db, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tag, err := h.tagService.GetBySlug(h.db, userID, c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

type assignTagsRequest struct {
	TaskID uuid.UUID `json:"task" binding:"required"`
	Names  []string  `json:"tags" binding:"required"`
}

// Assign replaces the full tag set on a task, creating any tags the owner
// doesn't have yet.
func (h *TagHandler) Assign(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req assignTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.tagService.AssignTags(h.db, userID, req.TaskID, req.Names)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.tagService.Delete(h.db, userID, c.Param("slug")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

type CommentHandler struct {
	db             *gorm.DB
	commentService *services.CommentService
}

func NewCommentHandler(db *gorm.DB, commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{db: db, commentService: commentService}
}

func (h *CommentHandler) ListForTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed task id"})
		return
	}

	comments, err := h.commentService.ListForTask(h.db, userID, taskID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var in services.CreateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.Create(h.db, userID, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.commentService.Delete(h.db, userID, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
