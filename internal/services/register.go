package services

import (
	"errors"
	"time"

	"todo-manager/backend/internal/models"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegistrationRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"max=50"`
	LastName  string `json:"last_name" binding:"max=50"`
	Timezone  string `json:"timezone"`
}

type RegisterService interface {
	RegisterUser(db *gorm.DB, req RegistrationRequest) (*models.User, error)
}

type RegisterServiceImpl struct{}

func NewRegisterService() *RegisterServiceImpl {
	return &RegisterServiceImpl{}
}

// RegisterUser creates the user plus everything a fresh account needs, as
// explicit steps in one transaction: profile, then the inbox project, then
// the inbox's catch-all section. No signal hooks; the side-effect order is
// part of the contract.
func (s *RegisterServiceImpl) RegisterUser(db *gorm.DB, req RegistrationRequest) (*models.User, error) {
	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, validationf("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return nil, validationf("username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = models.DefaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, validationf("unknown timezone %q", req.Timezone)
	}

	user := models.User{
		ID:        uuid.Must(uuid.NewV4()),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		profile := models.UserProfile{
			ID:       uuid.Must(uuid.NewV4()),
			UserID:   user.ID,
			Timezone: timezone,
			Theme:    models.ThemeSystem,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		inbox := models.Project{
			ID:        uuid.Must(uuid.NewV4()),
			OwnerID:   user.ID,
			Title:     user.Username,
			IsDefault: true,
			View:      models.ViewList,
			Order:     0,
		}
		if err := tx.Create(&inbox).Error; err != nil {
			return err
		}
		return createDefaultSection(tx, inbox.ID)
	})
	if err != nil {
		return nil, err
	}

	if err := db.Preload("Profile").First(&user, "id = ?", user.ID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
