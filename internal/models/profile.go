package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// DefaultTimezone is used when a profile has no (or an unknown) zone.
const DefaultTimezone = "Asia/Manila"

const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

type UserProfile struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;unique;not null"`
	Name        string    `json:"name"`
	Timezone    string    `json:"timezone" gorm:"not null;default:'Asia/Manila'"`
	Theme       string    `json:"theme" gorm:"not null;default:'system'"`
	IsAdmin     bool      `json:"is_admin" gorm:"default:false"`
	IsOnboarded bool      `json:"is_onboarded" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location resolves the profile timezone, falling back to the default zone
// and finally UTC if the IANA name cannot be loaded.
func (p *UserProfile) Location() *time.Location {
	name := DefaultTimezone
	if p != nil && p.Timezone != "" {
		name = p.Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}
