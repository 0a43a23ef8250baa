package services

import (
	"fmt"

	"todo-manager/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// AdminPolicy wraps the owner-scoped services with elevated scope: listings
// cross tenant boundaries, and mutations resolve the row's owner first and
// then run through the exact same ordering/recurrence core. There is no
// separate admin implementation of the invariants.
type AdminPolicy struct {
	tasks    *TaskService
	projects *ProjectService
}

func NewAdminPolicy(tasks *TaskService, projects *ProjectService) *AdminPolicy {
	return &AdminPolicy{tasks: tasks, projects: projects}
}

const (
	adminDefaultPageSize = 10
	adminMaxPageSize     = 100
)

func adminPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = adminDefaultPageSize
	}
	if pageSize > adminMaxPageSize {
		pageSize = adminMaxPageSize
	}
	return page, pageSize
}

var adminTaskSortColumns = map[string]string{
	"id":              "tasks.id",
	"title":           "tasks.title",
	"due_date":        "tasks.due_date",
	"priority":        "tasks.priority",
	"completion_date": "tasks.completion_date",
}

// ListTasks returns tasks across all owners with search and paging.
func (a *AdminPolicy) ListTasks(db *gorm.DB, search, sortBy, order string, page, pageSize int) ([]models.Task, int64, error) {
	page, pageSize = adminPage(page, pageSize)

	q := db.Model(&models.Task{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("tasks.title LIKE ? OR tasks.description LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := adminTaskSortColumns[sortBy]
	if !ok {
		column = "tasks.id"
	}
	direction := "ASC"
	if order == "desc" {
		direction = "DESC"
	}

	var tasks []models.Task
	err := q.Order(fmt.Sprintf("%s %s", column, direction)).
		Offset((page - 1) * pageSize).Limit(pageSize).
		Preload("Tags").Find(&tasks).Error
	return tasks, total, err
}

func (a *AdminPolicy) ListProjects(db *gorm.DB, page, pageSize int) ([]models.Project, int64, error) {
	page, pageSize = adminPage(page, pageSize)

	var total int64
	if err := db.Model(&models.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var projects []models.Project
	err := db.Order(`owner_id, "order"`).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&projects).Error
	return projects, total, err
}

func (a *AdminPolicy) ListUsers(db *gorm.DB, page, pageSize int) ([]models.User, int64, error) {
	page, pageSize = adminPage(page, pageSize)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := db.Preload("Profile").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	return users, total, err
}

func (a *AdminPolicy) ListTags(db *gorm.DB, page, pageSize int) ([]models.Tag, int64, error) {
	page, pageSize = adminPage(page, pageSize)

	var total int64
	if err := db.Model(&models.Tag{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tags []models.Tag
	err := db.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&tags).Error
	return tags, total, err
}

// UpdateTask edits any user's task through the owner-scoped core, so default
// row protection and ordering invariants hold for admins too.
func (a *AdminPolicy) UpdateTask(db *gorm.DB, id uuid.UUID, in UpdateTaskInput) (models.Task, error) {
	ownerID, err := a.taskOwner(db, id)
	if err != nil {
		return models.Task{}, err
	}
	return a.tasks.Update(db, ownerID, id, in)
}

func (a *AdminPolicy) DeleteTask(db *gorm.DB, id uuid.UUID) error {
	ownerID, err := a.taskOwner(db, id)
	if err != nil {
		return err
	}
	return a.tasks.Delete(db, ownerID, id)
}

func (a *AdminPolicy) DeleteProject(db *gorm.DB, id uuid.UUID) error {
	var project models.Project
	if err := db.Where("id = ?", id).First(&project).Error; err != nil {
		return notFound(err)
	}
	return a.projects.Delete(db, project.OwnerID, id)
}

func (a *AdminPolicy) SetUserActive(db *gorm.DB, id uuid.UUID, active bool) error {
	result := db.Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (a *AdminPolicy) taskOwner(db *gorm.DB, taskID uuid.UUID) (uuid.UUID, error) {
	var raw string
	err := db.Model(&models.Task{}).
		Joins("JOIN project_sections ON project_sections.id = tasks.section_id").
		Joins("JOIN projects ON projects.id = project_sections.project_id").
		Where("tasks.id = ?", taskID).
		Select("projects.owner_id").Scan(&raw).Error
	if err != nil {
		return uuid.Nil, err
	}
	if raw == "" {
		return uuid.Nil, ErrNotFound
	}
	ownerID, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed owner id %q: %w", raw, err)
	}
	return ownerID, nil
}
