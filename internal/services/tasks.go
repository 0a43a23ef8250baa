package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/ordering"
	"todo-manager/backend/internal/recurrence"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// taskOrdering scopes task order by section.
var taskOrdering = ordering.Collection{
	Table:       "tasks",
	ScopeColumn: "section_id",
	Base:        1,
}

// ListCache is the slice of the cache the task service needs; nil disables
// caching entirely (tests, cacheless deployments).
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

const taskListTTL = 5 * time.Minute

type CreateTaskInput struct {
	SectionID   uuid.UUID  `json:"section" binding:"required"`
	Title       string     `json:"title" binding:"required,max=100"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	RRule       *string    `json:"rrule"`
	AboveTaskID *uuid.UUID `json:"above_task"`
	BelowTaskID *uuid.UUID `json:"below_task"`
}

// UpdateTaskInput carries partial updates. RRule and CompletionDate are
// nullable, so plain pointers can't distinguish "absent" from "set to null";
// the Set flags carry field presence from the request body.
type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	SectionID   *uuid.UUID `json:"section"`
	Order       *int       `json:"order"`

	RRule    *string
	RRuleSet bool

	CompletionDate *time.Time
	CompletionSet  bool
}

type BulkTaskUpdate struct {
	ID        uuid.UUID  `json:"id" binding:"required"`
	Order     *int       `json:"order"`
	SectionID *uuid.UUID `json:"section"`
	Title     *string    `json:"title"`
	Priority  *string    `json:"priority"`
}

type TaskFilter struct {
	SectionID *uuid.UUID
	ProjectID *uuid.UUID
	Completed *bool
}

type TaskService struct {
	engine *recurrence.Engine
	cache  ListCache

	// appendAcrossProject preserves the historical append rule: a task
	// created without an above/below reference lands after the highest
	// order across the whole project, not just its own section. Likely a
	// latent inconsistency upstream; kept behind this flag pending product
	// clarification.
	appendAcrossProject bool
}

func NewTaskService(engine *recurrence.Engine, listCache ListCache) *TaskService {
	return &TaskService{
		engine:              engine,
		cache:               listCache,
		appendAcrossProject: true,
	}
}

func (s *TaskService) List(db *gorm.DB, ownerID uuid.UUID, filter TaskFilter) ([]models.Task, error) {
	ctx := context.Background()
	key := s.listKey(ownerID, filter)
	if s.cache != nil {
		var cached []models.Task
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	q := ownedTasks(db, ownerID)
	if filter.SectionID != nil {
		q = q.Where("tasks.section_id = ?", *filter.SectionID)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_sections.project_id = ?", *filter.ProjectID)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			q = q.Where("tasks.completion_date IS NOT NULL")
		} else {
			q = q.Where("tasks.completion_date IS NULL")
		}
	}
	var tasks []models.Task
	err := q.Preload("Tags").Order(`tasks."order", tasks.due_date DESC`).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, tasks, taskListTTL); err != nil {
			log.Printf("task list cache set failed: %v", err)
		}
	}
	return tasks, nil
}

func (s *TaskService) Get(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error) {
	return ownedTask(db, ownerID, id)
}

func (s *TaskService) Create(db *gorm.DB, ownerID uuid.UUID, in CreateTaskInput) (models.Task, error) {
	if in.AboveTaskID != nil && in.BelowTaskID != nil {
		return models.Task{}, validationf("you can only specify one of 'above_task' or 'below_task'")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNone
	}
	if !models.ValidPriority(priority) {
		return models.Task{}, validationf("unknown priority %q", priority)
	}
	if in.RRule != nil && *in.RRule != "" {
		if err := s.engine.Validate(*in.RRule); err != nil {
			return models.Task{}, validationf("invalid rrule: %v", err)
		}
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		SectionID:   in.SectionID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
	}
	if in.RRule != nil && *in.RRule != "" {
		task.RRule = in.RRule
	}

	err := withOrderingTx(db, func(tx *gorm.DB) error {
		section, err := ownedSection(tx, ownerID, in.SectionID)
		if err != nil {
			return err
		}

		switch {
		case in.AboveTaskID != nil:
			ref, err := ownedTask(tx, ownerID, *in.AboveTaskID)
			if err != nil {
				return err
			}
			assigned, err := taskOrdering.InsertAt(tx, section.ID, &ref.Order)
			if err != nil {
				return err
			}
			task.Order = assigned
		case in.BelowTaskID != nil:
			ref, err := ownedTask(tx, ownerID, *in.BelowTaskID)
			if err != nil {
				return err
			}
			position := ref.Order + 1
			assigned, err := taskOrdering.InsertAt(tx, section.ID, &position)
			if err != nil {
				return err
			}
			task.Order = assigned
		default:
			order, err := s.appendOrder(tx, section)
			if err != nil {
				return err
			}
			task.Order = order
		}

		if task.RRule != nil {
			loc, err := ownerLocation(tx, ownerID)
			if err != nil {
				return err
			}
			s.refreshCachedDueDate(&task, time.Now(), loc)
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return models.Task{}, err
	}
	s.invalidateLists(ownerID)
	return task, nil
}

// appendOrder picks the order for a task created without a reference sibling.
func (s *TaskService) appendOrder(tx *gorm.DB, section models.ProjectSection) (int, error) {
	if !s.appendAcrossProject {
		max, err := taskOrdering.MaxOrder(tx, section.ID)
		if err != nil {
			return 0, err
		}
		return max + 1, nil
	}
	var max *int
	err := tx.Model(&models.Task{}).
		Joins("JOIN project_sections ON project_sections.id = tasks.section_id").
		Where("project_sections.project_id = ?", section.ProjectID).
		Select(`MAX(tasks."order")`).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func (s *TaskService) Update(db *gorm.DB, ownerID, id uuid.UUID, in UpdateTaskInput) (models.Task, error) {
	if in.Priority != nil && !models.ValidPriority(*in.Priority) {
		return models.Task{}, validationf("unknown priority %q", *in.Priority)
	}
	if in.RRuleSet && in.RRule != nil && *in.RRule != "" {
		if err := s.engine.Validate(*in.RRule); err != nil {
			return models.Task{}, validationf("invalid rrule: %v", err)
		}
	}

	var task models.Task
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		var err error
		task, err = ownedTask(tx, ownerID, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Priority != nil {
			task.Priority = *in.Priority
		}

		if err := s.applyOrdering(tx, ownerID, &task, in); err != nil {
			return err
		}
		if err := s.applyRecurrence(tx, ownerID, &task, in); err != nil {
			return err
		}
		task.UpdatedAt = time.Now()
		return tx.Save(&task).Error
	})
	if err != nil {
		return models.Task{}, err
	}
	s.invalidateLists(ownerID)
	return task, nil
}

func (s *TaskService) applyOrdering(tx *gorm.DB, ownerID uuid.UUID, task *models.Task, in UpdateTaskInput) error {
	destSectionID := task.SectionID
	if in.SectionID != nil {
		destSectionID = *in.SectionID
	}
	newOrder := task.Order
	if in.Order != nil {
		newOrder = *in.Order
	}
	if destSectionID == task.SectionID && newOrder == task.Order {
		return nil
	}

	if destSectionID != task.SectionID {
		if _, err := ownedSection(tx, ownerID, destSectionID); err != nil {
			return err
		}
		max, err := taskOrdering.MaxOrder(tx, destSectionID)
		if err != nil {
			return err
		}
		if in.Order == nil {
			newOrder = max + 1
		} else {
			newOrder = clampOrder(newOrder, max+1)
		}
		assigned, err := taskOrdering.MoveAcross(tx, task.SectionID, destSectionID, task.ID, task.Order, newOrder)
		if err != nil {
			return err
		}
		task.SectionID = destSectionID
		task.Order = assigned
		return nil
	}

	max, err := taskOrdering.MaxOrder(tx, task.SectionID)
	if err != nil {
		return err
	}
	newOrder = clampOrder(newOrder, max)
	if newOrder == task.Order {
		return nil
	}
	assigned, err := taskOrdering.MoveWithin(tx, task.SectionID, task.ID, task.Order, newOrder)
	if err != nil {
		return err
	}
	task.Order = assigned
	return nil
}

// clampOrder bounds a requested position to the scope's occupied range so a
// runaway position cannot punch a gap into the sequence.
func clampOrder(order, max int) int {
	if order > max {
		order = max
	}
	if order < 1 {
		order = 1
	}
	return order
}

// applyRecurrence keeps the cached due date consistent with the rule and the
// completion state. Clearing the rule always clears the cache; completing or
// un-completing a recurring task recomputes the next occurrence.
func (s *TaskService) applyRecurrence(tx *gorm.DB, ownerID uuid.UUID, task *models.Task, in UpdateTaskInput) error {
	completionToggled := false
	if in.CompletionSet {
		wasCompleted := task.IsCompleted()
		task.CompletionDate = in.CompletionDate
		completionToggled = wasCompleted != task.IsCompleted()
	}

	if in.RRuleSet {
		if in.RRule == nil || *in.RRule == "" {
			task.RRule = nil
			task.DueDate = nil
			return nil
		}
		task.RRule = in.RRule
		loc, err := ownerLocation(tx, ownerID)
		if err != nil {
			return err
		}
		s.refreshCachedDueDate(task, time.Now(), loc)
		return nil
	}

	if completionToggled && task.RRule != nil && s.engine.IsRecurring(*task.RRule) {
		loc, err := ownerLocation(tx, ownerID)
		if err != nil {
			return err
		}
		from := time.Now()
		if task.IsCompleted() && task.DueDate != nil && task.DueDate.After(from) {
			// Completing early must still advance the cache strictly past
			// the occurrence just completed.
			from = task.DueDate.Add(time.Second)
		}
		// Un-completing lands on the next future occurrence, not the one
		// just un-done; documented behavior pending product decision.
		s.refreshCachedDueDate(task, from, loc)
	}
	return nil
}

// refreshCachedDueDate recomputes the cache from the rule. Read-path parse
// failures leave the cache untouched; write paths validate beforehand.
func (s *TaskService) refreshCachedDueDate(task *models.Task, from time.Time, loc *time.Location) {
	if task.RRule == nil {
		task.DueDate = nil
		return
	}
	next, err := s.engine.NextOccurrence(*task.RRule, from, loc)
	if err != nil {
		log.Printf("task %s: rrule recompute failed, keeping cached due date: %v", task.ID, err)
		return
	}
	task.DueDate = next
}

func (s *TaskService) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		task, err := ownedTask(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := taskOrdering.CloseGap(tx, task.SectionID, task.Order); err != nil {
			return err
		}
		return deleteSectionTasksRow(tx, task.ID)
	})
	if err != nil {
		return err
	}
	s.invalidateLists(ownerID)
	return nil
}

// Duplicate clones a task (tags included) at the end of its section.
func (s *TaskService) Duplicate(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error) {
	var clone models.Task
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		task, err := ownedTask(tx, ownerID, id)
		if err != nil {
			return err
		}
		max, err := taskOrdering.MaxOrder(tx, task.SectionID)
		if err != nil {
			return err
		}
		clone = task
		clone.ID = uuid.Must(uuid.NewV4())
		clone.Order = max + 1
		clone.Tags = nil
		clone.CreatedAt = time.Time{}
		clone.UpdatedAt = time.Time{}
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO task_tags (task_id, tag_id) SELECT ?, tag_id FROM task_tags WHERE task_id = ?",
			clone.ID, task.ID,
		).Error
	})
	if err != nil {
		return models.Task{}, err
	}
	s.invalidateLists(ownerID)
	return clone, nil
}

// GenerateOccurrences enumerates the task's occurrences between start and end
// in the owner's timezone. A task without a rule has no occurrences.
func (s *TaskService) GenerateOccurrences(db *gorm.DB, ownerID, id uuid.UUID, start, end time.Time) ([]time.Time, error) {
	task, err := ownedTask(db, ownerID, id)
	if err != nil {
		return nil, err
	}
	if task.RRule == nil {
		return []time.Time{}, nil
	}
	loc, err := ownerLocation(db, ownerID)
	if err != nil {
		return nil, err
	}
	occurrences, err := s.engine.OccurrencesInRange(*task.RRule, start, end, loc)
	if err != nil {
		return nil, validationf("invalid rrule: %v", err)
	}
	return occurrences, nil
}

// RefreshDueDate forces a cache recompute from now and persists the result.
func (s *TaskService) RefreshDueDate(db *gorm.DB, ownerID, id uuid.UUID) (*time.Time, error) {
	var due *time.Time
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		task, err := ownedTask(tx, ownerID, id)
		if err != nil {
			return err
		}
		loc, err := ownerLocation(tx, ownerID)
		if err != nil {
			return err
		}
		s.refreshCachedDueDate(&task, time.Now(), loc)
		due = task.DueDate
		return tx.Model(&models.Task{}).Where("id = ?", task.ID).
			Update("due_date", task.DueDate).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidateLists(ownerID)
	return due, nil
}

// BulkUpdate applies a batch of partial updates in one transaction. Orders
// and sections are written as given; one aggregate failure aborts the batch.
func (s *TaskService) BulkUpdate(db *gorm.DB, ownerID uuid.UUID, items []BulkTaskUpdate) error {
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		locked := map[uuid.UUID]bool{}
		for _, item := range items {
			task, err := ownedTask(tx, ownerID, item.ID)
			if err != nil {
				return fmt.Errorf("task %s: %w", item.ID, err)
			}
			if !locked[task.SectionID] {
				if err := taskOrdering.Lock(tx, task.SectionID); err != nil {
					return err
				}
				locked[task.SectionID] = true
			}
			if item.SectionID != nil && *item.SectionID != task.SectionID {
				if _, err := ownedSection(tx, ownerID, *item.SectionID); err != nil {
					return fmt.Errorf("task %s: %w", item.ID, err)
				}
				task.SectionID = *item.SectionID
			}
			if item.Order != nil {
				task.Order = *item.Order
			}
			if item.Title != nil {
				task.Title = *item.Title
			}
			if item.Priority != nil {
				if !models.ValidPriority(*item.Priority) {
					return validationf("task %s: unknown priority %q", item.ID, *item.Priority)
				}
				task.Priority = *item.Priority
			}
			if err := tx.Save(&task).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateLists(ownerID)
	return nil
}

func (s *TaskService) listKey(ownerID uuid.UUID, filter TaskFilter) string {
	section, project, completed := "all", "all", "all"
	if filter.SectionID != nil {
		section = filter.SectionID.String()
	}
	if filter.ProjectID != nil {
		project = filter.ProjectID.String()
	}
	if filter.Completed != nil {
		completed = fmt.Sprintf("%t", *filter.Completed)
	}
	return fmt.Sprintf("tasks:%s:%s:%s:%s", ownerID, project, section, completed)
}

func (s *TaskService) invalidateLists(ownerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("tasks:%s:*", ownerID)
	if err := s.cache.DeletePattern(context.Background(), pattern); err != nil {
		log.Printf("task list cache invalidation failed: %v", err)
	}
}

func ownedTasks(db *gorm.DB, ownerID uuid.UUID) *gorm.DB {
	return db.Model(&models.Task{}).
		Joins("JOIN project_sections ON project_sections.id = tasks.section_id").
		Joins("JOIN projects ON projects.id = project_sections.project_id").
		Where("projects.owner_id = ?", ownerID)
}

func ownedTask(db *gorm.DB, ownerID, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := ownedTasks(db, ownerID).Where("tasks.id = ?", id).Preload("Tags").First(&task).Error
	return task, notFound(err)
}

func ownerLocation(db *gorm.DB, ownerID uuid.UUID) (*time.Location, error) {
	var profile models.UserProfile
	err := db.Where("user_id = ?", ownerID).First(&profile).Error
	if err != nil {
		// A user without a profile row still gets the default zone.
		return (&models.UserProfile{}).Location(), nil
	}
	return profile.Location(), nil
}

// deleteSectionTasksRow removes one task plus its tag links and comments.
func deleteSectionTasksRow(tx *gorm.DB, taskID uuid.UUID) error {
	if err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", taskID).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", taskID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", taskID).Delete(&models.Task{}).Error
}
