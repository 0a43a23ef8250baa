package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	PriorityNone   = "NONE"
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Priorities lists the valid task priorities in ascending urgency.
var Priorities = []string{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh}

func ValidPriority(p string) bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	SectionID   uuid.UUID `json:"section" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"not null;size:100"`
	Description string    `json:"description"`
	Priority    string    `json:"priority" gorm:"not null;default:'NONE'"`

	// RRule drives DueDate. DueDate is a cache derived from RRule in the
	// owner's timezone and is never written directly by clients.
	RRule   *string    `json:"rrule" gorm:"column:rrule"`
	DueDate *time.Time `json:"due_date"`

	CompletionDate *time.Time `json:"completion_date"`
	Order          int        `json:"order" gorm:"column:order;not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tags []Tag `json:"tags,omitempty" gorm:"many2many:task_tags;"`
}

func (t *Task) IsCompleted() bool {
	return t.CompletionDate != nil
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && !t.IsCompleted() && t.DueDate.Before(now)
}

type Tag struct {
	ID      uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index:idx_tag_owner_slug,unique"`
	Name    string    `json:"name" gorm:"not null;size:100"`
	Slug    string    `json:"slug" gorm:"not null;size:100;index:idx_tag_owner_slug,unique"`

	CreatedAt time.Time `json:"created_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"many2many:task_tags;"`
}

type Comment struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID uuid.UUID `json:"task" gorm:"type:uuid;not null;index"`
	UserID uuid.UUID `json:"user" gorm:"type:uuid;not null"`
	Body   string    `json:"body" gorm:"not null"`

	SubmittedAt time.Time `json:"submitted_at"`
	IsRemoved   bool      `json:"-" gorm:"default:false"`
}
