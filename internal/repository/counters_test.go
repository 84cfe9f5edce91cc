package repository

import (
	"context"
	"regexp"
	"testing"

	"chirp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestTweetRepository_CounterStatements(t *testing.T) {
	tests := []struct {
		name    string
		run     func(r TweetRepository) error
		sql     string
		counter Counter
	}{
		{
			name: "increment likes",
			run:  func(r TweetRepository) error { return r.Increment(context.Background(), 5, TweetLikes) },
			sql:  `UPDATE "tweets" SET "like_count"=like_count + 1 WHERE id = $1`,
		},
		{
			name: "decrement retweets clamps at zero",
			run:  func(r TweetRepository) error { return r.Decrement(context.Background(), 5, TweetRetweets) },
			sql:  `UPDATE "tweets" SET "retweet_count"=CASE WHEN retweet_count > 0 THEN retweet_count - 1 ELSE 0 END WHERE id = $1`,
		},
		{
			name: "decrement replies",
			run:  func(r TweetRepository) error { return r.Decrement(context.Background(), 5, TweetReplies) },
			sql:  `UPDATE "tweets" SET "reply_count"=CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END WHERE id = $1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewTweetRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(tt.sql)).
				WithArgs(5).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			require.NoError(t, tt.run(repo))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CounterStatements(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "tweets_count"=CASE WHEN tweets_count > 0 THEN tweets_count - 1 ELSE 0 END WHERE id = $1`)).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Decrement(context.Background(), 9, UserTweets))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounters_RejectForeignColumns(t *testing.T) {
	db, mock := setupMockDB(t)

	err := NewTweetRepository(db).Increment(context.Background(), 1, UserFollowers)
	require.Error(t, err)
	assert.Equal(t, models.CodeInternalError, models.ErrorCode(err))

	err = NewUserRepository(db).Increment(context.Background(), 1, TweetLikes)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
