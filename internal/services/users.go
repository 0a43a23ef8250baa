package services

import (
	"time"

	"todo-manager/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// lastSeenInterval throttles last-login writes from the /users/me endpoint.
const lastSeenInterval = 5 * time.Minute

type UpdateProfileInput struct {
	Name        *string `json:"name"`
	Timezone    *string `json:"timezone"`
	Theme       *string `json:"theme"`
	IsOnboarded *bool   `json:"is_onboarded"`
}

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// Me loads the current user and refreshes their last-seen timestamp at most
// once per interval.
func (s *UserService) Me(db *gorm.DB, userID uuid.UUID) (models.User, error) {
	var user models.User
	err := db.Preload("Profile").Where("id = ?", userID).First(&user).Error
	if err != nil {
		return models.User{}, notFound(err)
	}

	now := time.Now()
	if user.LastLoginAt == nil || now.Sub(*user.LastLoginAt) > lastSeenInterval {
		user.LastLoginAt = &now
		if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
			return models.User{}, err
		}
	}
	return user, nil
}

func (s *UserService) UpdateProfile(db *gorm.DB, userID uuid.UUID, in UpdateProfileInput) (models.UserProfile, error) {
	var profile models.UserProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return models.UserProfile{}, notFound(err)
	}

	if in.Name != nil {
		profile.Name = *in.Name
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			return models.UserProfile{}, validationf("unknown timezone %q", *in.Timezone)
		}
		profile.Timezone = *in.Timezone
	}
	if in.Theme != nil {
		switch *in.Theme {
		case models.ThemeSystem, models.ThemeLight, models.ThemeDark:
			profile.Theme = *in.Theme
		default:
			return models.UserProfile{}, validationf("unknown theme %q", *in.Theme)
		}
	}
	if in.IsOnboarded != nil {
		profile.IsOnboarded = *in.IsOnboarded
	}

	if err := db.Save(&profile).Error; err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}
