// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"chirp/internal/database"
	"chirp/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to the test.
// It holds a single connection, so code running inside a transaction must
// only use the transaction handle.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:chirp_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		FirstName: "Test",
		LastName:  username,
		Username:  username,
		Email:     username + "@example.com",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Reload reads a fresh copy of the tweet row.
func Reload(t testing.TB, db *gorm.DB, id uint) *models.Tweet {
	t.Helper()
	var tweet models.Tweet
	require.NoError(t, db.First(&tweet, id).Error)
	return &tweet
}

// ReloadUser reads a fresh copy of the user row.
func ReloadUser(t testing.TB, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}
