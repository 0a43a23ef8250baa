package database_test

import (
	"testing"

	"todo-manager/backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	for _, table := range []string{
		"users", "user_profiles", "tokens",
		"projects", "project_sections", "tasks",
		"tags", "comments", "task_tags",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db))
}
