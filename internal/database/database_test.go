package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestMigrate_CreatesRetweetUniqueness(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Migrate(db))
	// idempotent
	require.NoError(t, Migrate(db))

	user := models.User{FirstName: "Ada", LastName: "L", Username: "ada", Email: "ada@example.com"}
	require.NoError(t, db.Create(&user).Error)
	original := models.Tweet{UserID: user.ID, Content: "hello", TweetType: models.TweetTypeTweet}
	require.NoError(t, db.Create(&original).Error)

	first := models.Tweet{UserID: user.ID, Content: "hello", TweetType: models.TweetTypeRetweet, ParentTweetID: &original.ID}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Tweet{UserID: user.ID, Content: "hello", TweetType: models.TweetTypeRetweet, ParentTweetID: &original.ID}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	// quotes of the same original are not constrained
	for i := 0; i < 2; i++ {
		quote := models.Tweet{UserID: user.ID, Content: "again", TweetType: models.TweetTypeQuote, ParentTweetID: &original.ID}
		require.NoError(t, db.Create(&quote).Error)
	}
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "chirp"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=chirp sslmode=disable", dsn)
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Contains(t, buf.String(), "GORM query error")
	buf.Reset()

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "GORM slow query")
	buf.Reset()

	l.LogMode(logger.Silent).Trace(ctx, time.Now().Add(-time.Second), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}
