package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	ViewList  = "list"
	ViewBoard = "board"
)

// DefaultSectionTitle names the catch-all section every project carries for
// tasks without an explicit section.
const DefaultSectionTitle = "(No Section)"

type Project struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"not null;size:100"`
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	View      string    `json:"view" gorm:"not null;default:'list'"`
	Order     int       `json:"order" gorm:"column:order;not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sections []ProjectSection `json:"sections,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// UserInbox returns the owner's default project.
func UserInbox(db *gorm.DB, ownerID uuid.UUID) (Project, error) {
	var inbox Project
	err := db.Where("owner_id = ? AND is_default = ?", ownerID, true).First(&inbox).Error
	return inbox, err
}

// DefaultSection returns the project's catch-all section.
func (p *Project) DefaultSection(db *gorm.DB) (ProjectSection, error) {
	var section ProjectSection
	err := db.Where("project_id = ? AND is_default = ?", p.ID, true).First(&section).Error
	return section, err
}

type ProjectSection struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"not null;size:100"`
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	Order     int       `json:"order" gorm:"column:order;not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}
