package service

import (
	"context"
	"sync"
	"testing"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeService_ToggleLike(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tweet := e.post(t, alice, "like me")

	liked, err := e.likes.ToggleLike(ctx, tweet.ID, bob)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.LikeCount)

	unliked, err := e.likes.ToggleLike(ctx, tweet.ID, bob)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Zero(t, unliked.LikeCount)
	e.assertNoDrift(t)
}

func TestLikeService_RetweetRedirectsToOriginal(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")
	original := e.post(t, alice, "original")
	rt, err := e.tweets.Retweet(ctx, original.ID, bob)
	require.NoError(t, err)

	resp, err := e.likes.ToggleLike(ctx, rt.ID, carol)
	require.NoError(t, err)

	assert.Equal(t, rt.ID, resp.ID, "the referenced tweet is rendered")
	assert.True(t, resp.Liked)
	assert.Equal(t, 1, e.tweet(t, original.ID).LikeCount)
	assert.Zero(t, e.tweet(t, rt.ID).LikeCount)

	// liking the original directly now unlikes it
	resp, err = e.likes.ToggleLike(ctx, original.ID, carol)
	require.NoError(t, err)
	assert.False(t, resp.Liked)
	assert.Zero(t, e.tweet(t, original.ID).LikeCount)
}

func TestLikeService_Errors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tweet := e.post(t, alice, "doomed")
	_, err := e.tweets.Delete(ctx, tweet.ID, alice)
	require.NoError(t, err)

	_, err = e.likes.ToggleLike(ctx, tweet.ID, bob)
	assertCode(t, err, models.CodeInvalidState)

	_, err = e.likes.ToggleLike(ctx, 999, bob)
	assertCode(t, err, models.CodeNotFound)

	live := e.post(t, alice, "alive")
	_, err = e.likes.ToggleLike(ctx, live.ID, 999)
	assertCode(t, err, models.CodeNotFound)
}

func TestLikeService_ConcurrentTogglesStayConsistent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	tweet := e.post(t, alice, "popular")

	likers := make([]uint, 8)
	for i := range likers {
		likers[i] = e.user(t, "fan"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, id := range likers {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := e.likes.ToggleLike(ctx, tweet.ID, userID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, len(likers), e.tweet(t, tweet.ID).LikeCount)
	e.assertNoDrift(t)
}

func TestLikeService_Listings(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")
	first := e.post(t, alice, "first")
	second := e.post(t, alice, "second")

	for _, id := range []uint{bob, carol} {
		_, err := e.likes.ToggleLike(ctx, first.ID, id)
		require.NoError(t, err)
	}
	_, err := e.likes.ToggleLike(ctx, second.ID, bob)
	require.NoError(t, err)

	likers, err := e.likes.ListLikers(ctx, first.ID, firstPage())
	require.NoError(t, err)
	assert.EqualValues(t, 2, likers.TotalElements)
	names := []string{likers.Content[0].Username, likers.Content[1].Username}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	liked, err := e.likes.ListLikedTweets(ctx, bob, carol, firstPage())
	require.NoError(t, err)
	assert.EqualValues(t, 2, liked.TotalElements)
	for _, tw := range liked.Content {
		if tw.ID == first.ID {
			assert.True(t, tw.Liked, "carol likes the first tweet")
		} else {
			assert.False(t, tw.Liked)
		}
	}

	_, err = e.likes.ListLikers(ctx, 999, firstPage())
	assertCode(t, err, models.CodeNotFound)
	_, err = e.likes.ListLikedTweets(ctx, 999, bob, firstPage())
	assertCode(t, err, models.CodeNotFound)
}
