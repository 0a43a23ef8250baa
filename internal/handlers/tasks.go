package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService *services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var filter services.TaskFilter
	if raw := c.Query("section"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed section filter"})
			return
		}
		filter.SectionID = &id
	}
	if raw := c.Query("project"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed project filter"})
			return
		}
		filter.ProjectID = &id
	}
	if raw := c.Query("completed"); raw != "" {
		completed := raw == "true" || raw == "1"
		filter.Completed = &completed
	}

	tasks, err := h.taskService.List(h.db, userID, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(h.db, userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var in services.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Create(h.db, userID, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// taskUpdateBody mirrors UpdateTaskInput for the fields where pointer
// binding suffices. rrule and completion_date are handled separately
// because "set to null" and "not sent" must stay distinguishable.
type taskUpdateBody struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Priority       *string    `json:"priority"`
	SectionID      *uuid.UUID `json:"section"`
	Order          *int       `json:"order"`
	RRule          *string    `json:"rrule"`
	CompletionDate *time.Time `json:"completion_date"`
}

func decodeTaskUpdate(data []byte) (services.UpdateTaskInput, error) {
	var body taskUpdateBody
	if err := json.Unmarshal(data, &body); err != nil {
		return services.UpdateTaskInput{}, err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return services.UpdateTaskInput{}, err
	}

	in := services.UpdateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		SectionID:   body.SectionID,
		Order:       body.Order,
	}
	if _, present := keys["rrule"]; present {
		in.RRule = body.RRule
		in.RRuleSet = true
	}
	if _, present := keys["completion_date"]; present {
		in.CompletionDate = body.CompletionDate
		in.CompletionSet = true
	}
	return in, nil
}

func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
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

	task, err := h.taskService.Update(h.db, userID, id, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(h.db, userID, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) Duplicate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Duplicate(h.db, userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

type generateOccurrencesRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// GenerateOccurrences expands a recurring task's schedule between the
// requested start and end dates.
func (h *TaskHandler) GenerateOccurrences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req generateOccurrencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date must be RFC 3339 timestamps"})
		return
	}
	start, end := req.StartDate, req.EndDate
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
		return
	}

	occurrences, err := h.taskService.GenerateOccurrences(h.db, userID, id, start, end)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}

func (h *TaskHandler) RefreshDueDate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	due, err := h.taskService.RefreshDueDate(h.db, userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"due_date": due})
}

func (h *TaskHandler) BulkUpdate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var items []services.BulkTaskUpdate
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.taskService.BulkUpdate(h.db, userID, items); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(items)})
}
