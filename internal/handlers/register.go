package handlers

import (
	"errors"
	"net/http"
	"strings"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterHandler struct {
	db              *gorm.DB
	registerService services.RegisterService
}

func NewRegisterHandler(db *gorm.DB, registerService services.RegisterService) *RegisterHandler {
	return &RegisterHandler{db: db, registerService: registerService}
}

type RegistrationResponse struct {
	Message string                 `json:"message"`
	User    RegistrationUserDetail `json:"user"`
}

type RegistrationUserDetail struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Timezone  string `json:"timezone"`
	IsActive  bool   `json:"is_active"`
}

func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.validateRegistrationRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": err.Error(),
		})
		return
	}

	user, err := h.registerService.RegisterUser(h.db, req)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Registration failed",
				"details": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Registration failed",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Registration failed",
			"details": "An unexpected error occurred. Please try again later.",
		})
		return
	}

	timezone := ""
	if user.Profile != nil {
		timezone = user.Profile.Timezone
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Message: "Your account has been created successfully.",
		User: RegistrationUserDetail{
			ID:        user.ID.String(),
			Username:  user.Username,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Timezone:  timezone,
			IsActive:  user.IsActive,
		},
	})
}

func (h *RegisterHandler) validateRegistrationRequest(req *services.RegistrationRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}

	for _, char := range req.Username {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '_') {
			return errors.New("username can only contain letters, numbers, and underscores")
		}
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	return h.validatePassword(req.Password)
}

func (h *RegisterHandler) validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case char >= 'A' && char <= 'Z':
			hasUpper = true
		case char >= 'a' && char <= 'z':
			hasLower = true
		case char >= '0' && char <= '9':
			hasDigit = true
		}
	}

	var missing []string
	if !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "number")
	}
	if len(missing) > 0 {
		return errors.New("password must contain at least one " + strings.Join(missing, ", "))
	}
	return nil
}
