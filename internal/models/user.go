package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username string    `json:"username" gorm:"unique;not null"`
	Email    string    `json:"email" gorm:"unique;not null"`
	Password string    `json:"-" gorm:"not null"`

	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Profile  *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID"`
	Projects []Project    `json:"projects,omitempty" gorm:"foreignKey:OwnerID"`
}

// DisplayName picks the best available name for outgoing email.
func (u *User) DisplayName() string {
	if u.Profile != nil && u.Profile.Name != "" {
		return u.Profile.Name
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

type Token struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RefreshToken string    `json:"refresh_token" gorm:"unique;not null"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
