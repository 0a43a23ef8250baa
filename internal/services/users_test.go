package services_test

import (
	"testing"
	"time"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeRefreshesLastSeen(t *testing.T) {
	db := newTestDB(t)
	user := registerUser(t, db, "alice")
	service := services.NewUserService()

	me, err := service.Me(db, user.ID)
	require.NoError(t, err)
	require.NotNil(t, me.LastLoginAt)
	first := *me.LastLoginAt

	// A second call inside the throttle window leaves the stamp alone.
	me, err = service.Me(db, user.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, first, *me.LastLoginAt, time.Second)

	// An old stamp is refreshed.
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).Update("last_login_at", stale).Error)
	me, err = service.Me(db, user.ID)
	require.NoError(t, err)
	assert.True(t, me.LastLoginAt.After(stale.Add(time.Minute)))
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	user := registerUser(t, db, "alice")
	service := services.NewUserService()

	name := "Alice A."
	timezone := "Europe/Berlin"
	theme := models.ThemeDark
	onboarded := true
	profile, err := service.UpdateProfile(db, user.ID, services.UpdateProfileInput{
		Name:        &name,
		Timezone:    &timezone,
		Theme:       &theme,
		IsOnboarded: &onboarded,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", profile.Name)
	assert.Equal(t, "Europe/Berlin", profile.Timezone)
	assert.Equal(t, models.ThemeDark, profile.Theme)
	assert.True(t, profile.IsOnboarded)
}

func TestUpdateProfileValidation(t *testing.T) {
	db := newTestDB(t)
	user := registerUser(t, db, "alice")
	service := services.NewUserService()

	badZone := "Nowhere/Void"
	_, err := service.UpdateProfile(db, user.ID, services.UpdateProfileInput{Timezone: &badZone})
	assert.ErrorIs(t, err, services.ErrValidation)

	badTheme := "neon"
	_, err = service.UpdateProfile(db, user.ID, services.UpdateProfileInput{Theme: &badTheme})
	assert.ErrorIs(t, err, services.ErrValidation)
}
