package service

import (
	"context"
	"testing"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_Search(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	gopher := e.user(t, "gopher")
	live := e.post(t, alice, "Learning Go today")
	gone := e.post(t, alice, "go away")
	_, err := e.tweets.Retweet(ctx, live.ID, gopher)
	require.NoError(t, err)
	_, err = e.tweets.Delete(ctx, gone.ID, alice)
	require.NoError(t, err)

	res, err := e.search.Search(ctx, "  go  ", alice, firstPage())
	require.NoError(t, err)

	require.Len(t, res.Tweets.Content, 1)
	assert.Equal(t, live.ID, res.Tweets.Content[0].ID)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "gopher", res.Users[0].Username)

	_, err = e.search.Search(ctx, "   ", alice, firstPage())
	assertCode(t, err, models.CodeValidation)
}

func TestSearchService_SearchHashtag(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	tagged := e.post(t, alice, "shipping it #golang")
	e.post(t, alice, "no tag golang")

	for _, tag := range []string{"golang", "#golang", "GoLang"} {
		page, err := e.search.SearchHashtag(ctx, tag, alice, firstPage())
		require.NoError(t, err)
		require.Len(t, page.Content, 1, tag)
		assert.Equal(t, tagged.ID, page.Content[0].ID)
	}

	for _, bad := range []string{"", "#", "two words"} {
		_, err := e.search.SearchHashtag(ctx, bad, alice, firstPage())
		assertCode(t, err, models.CodeValidation)
	}
}
