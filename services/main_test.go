package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB points utils.DB at a fresh in-memory SQLite database.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.GamePlan{},
		&models.Milestone{},
		&models.Order{},
		&models.Winner{},
	))

	prev := utils.DB
	utils.DB = db
	t.Cleanup(func() { utils.DB = prev })
}

// mustCreate inserts a record or fails the test.
func mustCreate(t *testing.T, value interface{}) {
	t.Helper()
	require.NoError(t, utils.DB.Create(value).Error)
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}
