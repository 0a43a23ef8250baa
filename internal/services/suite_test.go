package services_test

import (
	"testing"

	"todo-manager/backend/internal/database"
	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func registerUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user, err := services.NewRegisterService().RegisterUser(db, services.RegistrationRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "Sup3rSecret",
	})
	require.NoError(t, err)
	return user
}

func inboxOf(t *testing.T, db *gorm.DB, ownerID uuid.UUID) models.Project {
	t.Helper()
	inbox, err := models.UserInbox(db, ownerID)
	require.NoError(t, err)
	return inbox
}

func defaultSectionOf(t *testing.T, db *gorm.DB, projectID uuid.UUID) models.ProjectSection {
	t.Helper()
	var section models.ProjectSection
	err := db.Where("project_id = ? AND is_default = ?", projectID, true).First(&section).Error
	require.NoError(t, err)
	return section
}

// orderOf reloads a row's order column by primary key.
func orderOf(t *testing.T, db *gorm.DB, table string, id uuid.UUID) int {
	t.Helper()
	var row struct {
		ID    uuid.UUID
		Order int
	}
	err := db.Table(table).Select(`id, "order"`).Where("id = ?", id).Scan(&row).Error
	require.NoError(t, err)
	return row.Order
}

// assertDenseOrders verifies a scope holds exactly the orders base..base+N-1.
// omitDefault skips the pinned default row on tables that carry one.
func assertDenseOrders(t *testing.T, db *gorm.DB, table, scopeColumn string, scope uuid.UUID, base int, omitDefault bool) {
	t.Helper()
	q := db.Table(table).Where(scopeColumn+" = ?", scope)
	if omitDefault {
		q = q.Where("is_default = ?", false)
	}
	var rows []struct {
		ID    uuid.UUID
		Order int
	}
	require.NoError(t, q.Select(`id, "order"`).Order(`"order"`).Scan(&rows).Error)
	for i, row := range rows {
		require.Equal(t, base+i, row.Order, "gap or duplicate at index %d in %s", i, table)
	}
}
