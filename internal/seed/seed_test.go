package seed

import (
	"context"
	"testing"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/service"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	return Options{
		Users:          6,
		Posts:          20,
		Replies:        10,
		Retweets:       10,
		Quotes:         4,
		Likes:          30,
		FollowsPerUser: 3,
		Deletes:        3,
	}
}

func TestSeeder_RunKeepsCountersConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	sum, err := NewSeeder(db, 42).Run(ctx, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Users)
	assert.Equal(t, 20, sum.Tweets)
	assert.Equal(t, 10, sum.Replies)
	assert.Equal(t, 4, sum.Quotes)
	assert.NotZero(t, sum.Likes)
	assert.NotZero(t, sum.Follows)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	assert.Equal(t, int64(sum.Likes), likes)

	var replies int64
	require.NoError(t, db.Model(&models.Tweet{}).Where("tweet_type = ?", models.TweetTypeReply).Count(&replies).Error)
	assert.Equal(t, int64(sum.Replies), replies)

	repaired, err := service.NewCounterReconciler(repository.NewStore(db), 0).Sweep(ctx)
	require.NoError(t, err)
	for name, n := range repaired {
		assert.Zerof(t, n, "counter %s drifted", name)
	}
}

func TestSeeder_UsernamesFitColumn(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewSeeder(db, 7)

	ids, err := s.CreateUsers(context.Background(), 120)
	require.NoError(t, err)
	require.Len(t, ids, 120)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.LessOrEqual(t, len(u.Username), 15, u.Username)
		assert.NotEmpty(t, u.FirstName)
	}
}

func TestSeeder_ClearAll(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	s := NewSeeder(db, 1)

	_, err := s.Run(ctx, smallOptions())
	require.NoError(t, err)
	require.NoError(t, s.ClearAll(ctx))

	for _, model := range []interface{}{&models.Like{}, &models.Follow{}, &models.Tweet{}, &models.User{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zerof(t, n, "%T rows left", model)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé", truncate("héllo", 2))
}
