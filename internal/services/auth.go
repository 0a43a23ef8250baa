package services

import (
	"errors"
	"os"
	"time"

	"todo-manager/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	LoginUser(db *gorm.DB, email, password string) (*models.User, error)
	GenerateToken(db *gorm.DB, userID uuid.UUID) (string, string, error)
	RefreshToken(db *gorm.DB, refreshToken string) (string, string, int64, error)
	RevokeToken(db *gorm.DB, refreshToken string) error
}

type AuthServiceImpl struct{}

func NewAuthService() *AuthServiceImpl {
	return &AuthServiceImpl{}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) LoginUser(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Preload("Profile").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

func (s *AuthServiceImpl) GenerateToken(db *gorm.DB, userID uuid.UUID) (string, string, error) {
	secret := jwtSecret()

	isAdmin := false
	var profile models.UserProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err == nil {
		isAdmin = profile.IsAdmin
	}

	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"is_admin": isAdmin,
		"iss":      "todo-backend",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	refreshTokenUUID, err := uuid.NewV4()
	if err != nil {
		return "", "", err
	}
	refreshTokenString := refreshTokenUUID.String()

	token := models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		RefreshToken: refreshTokenString,
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
	}
	if err := db.Create(&token).Error; err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func (s *AuthServiceImpl) RefreshToken(db *gorm.DB, refreshToken string) (string, string, int64, error) {
	var token models.Token
	err := db.Where("refresh_token = ? AND expires_at > ?", refreshToken, time.Now()).First(&token).Error
	if err != nil {
		return "", "", 0, err
	}

	accessToken, newRefreshToken, err := s.GenerateToken(db, token.UserID)
	if err != nil {
		return "", "", 0, err
	}

	// Rotation: the old refresh token must be gone before the new pair is
	// handed out, or it stays replayable until it expires.
	if err := db.Delete(&token).Error; err != nil {
		return "", "", 0, err
	}

	return accessToken, newRefreshToken, int64(3600), nil
}

func (s *AuthServiceImpl) RevokeToken(db *gorm.DB, refreshToken string) error {
	return db.Where("refresh_token = ?", refreshToken).Delete(&models.Token{}).Error
}

func jwtSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret_change_in_production"
	}
	return secret
}
