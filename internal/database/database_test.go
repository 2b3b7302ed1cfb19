package database

import (
	"testing"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemoryMigratesAllTables(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	for _, m := range AllModels {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	u := models.User{Email: "a@example.com", Username: "alpha", DisplayName: "Alpha", Role: models.RoleMember}
	require.NoError(t, db.Create(&u).Error)
	assert.Len(t, u.ID, 36)
}

func TestOpenInMemoryIsIsolated(t *testing.T) {
	first, err := OpenInMemory()
	require.NoError(t, err)
	second, err := OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, first.Create(&models.Tool{Name: "Only here", Slug: "only-here"}).Error)

	var count int64
	require.NoError(t, second.Model(&models.Tool{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}

func TestRunSQLMigrationsRejectsUnknownCommand(t *testing.T) {
	err := RunSQLMigrations(nil, "sideways")
	assert.Error(t, err)
}

func TestHealthWithoutConnection(t *testing.T) {
	saved := DB
	DB = nil
	defer func() { DB = saved }()
	assert.Error(t, Health())
}
