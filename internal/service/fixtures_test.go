package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mediaStub struct {
	mu        sync.Mutex
	seq       int
	uploaded  []string
	deleted   []string
	uploadErr error
}

func (m *mediaStub) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.seq++
	url := fmt.Sprintf("/media/%d.png", m.seq)
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *mediaStub) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

type testEnv struct {
	db      *gorm.DB
	store   *repository.Store
	media   *mediaStub
	tweets  *TweetService
	likes   *LikeService
	follows *FollowService
	search  *SearchService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	mapper := NewTweetMapper(store)
	stub := &mediaStub{}
	return &testEnv{
		db:      db,
		store:   store,
		media:   stub,
		tweets:  NewTweetService(store, stub, mapper),
		likes:   NewLikeService(store, mapper),
		follows: NewFollowService(store),
		search:  NewSearchService(store, mapper),
		users:   NewUserService(store),
	}
}

func (e *testEnv) user(t *testing.T, username string) uint {
	t.Helper()
	return testutil.CreateUser(t, e.db, username).ID
}

func (e *testEnv) post(t *testing.T, authorID uint, content string) *models.TweetResponse {
	t.Helper()
	resp, err := e.tweets.CreatePost(context.Background(), CreateTweetInput{AuthorID: authorID, Content: content})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) reply(t *testing.T, authorID, parentID uint, content string) *models.TweetResponse {
	t.Helper()
	resp, err := e.tweets.Reply(context.Background(), parentID, CreateTweetInput{AuthorID: authorID, Content: content})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) tweet(t *testing.T, id uint) *models.Tweet {
	t.Helper()
	return testutil.Reload(t, e.db, id)
}

func (e *testEnv) account(t *testing.T, id uint) *models.User {
	t.Helper()
	return testutil.ReloadUser(t, e.db, id)
}

func (e *testEnv) exists(t *testing.T, tweetID uint) bool {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Tweet{}).Where("id = ?", tweetID).Count(&n).Error)
	return n > 0
}

// assertNoDrift checks every denormalized counter against its fact rows.
func (e *testEnv) assertNoDrift(t *testing.T) {
	t.Helper()
	repaired, err := NewCounterReconciler(e.store, 0).Sweep(context.Background())
	require.NoError(t, err)
	for name, n := range repaired {
		assert.Zerof(t, n, "counter %s drifted", name)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), err.Error())
}

func firstPage() models.PageRequest {
	return models.PageRequest{Page: 0, Size: 20}
}
