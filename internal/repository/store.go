// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"sync"

	"chirp/internal/cache"
	"chirp/internal/models"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. A Store
// obtained from Transaction binds every repository to the same transaction.
type Store struct {
	db    *gorm.DB
	scope *cacheScope

	Users    UserRepository
	Tweets   TweetRepository
	Likes    LikeRepository
	Follows  FollowRepository
	Counters CounterRepository
}

// NewStore returns a Store backed by db with cached tweet reads enabled.
func NewStore(db *gorm.DB) *Store {
	return newStore(db, &cacheScope{read: true})
}

func newStore(db *gorm.DB, scope *cacheScope) *Store {
	return &Store{
		db:       db,
		scope:    scope,
		Users:    &userRepository{db: db},
		Tweets:   &tweetRepository{db: db, scope: scope},
		Likes:    &likeRepository{db: db},
		Follows:  &followRepository{db: db},
		Counters: &counterRepository{db: db, scope: scope},
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Fresh returns a Store whose tweet reads bypass the cache.
func (s *Store) Fresh() *Store {
	return newStore(s.db, &cacheScope{})
}

// Transaction runs fn against a Store bound to a single transaction. Reads
// inside never hit the cache; cache entries for rows written inside are
// dropped only after the transaction commits.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	scope := &cacheScope{deferred: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx, scope))
	})
	if err != nil {
		return err
	}
	scope.flush(ctx)
	return nil
}

type cacheScope struct {
	read     bool
	deferred bool

	mu      sync.Mutex
	pending []uint
}

func (s *cacheScope) invalidate(ctx context.Context, ids ...uint) {
	if !s.deferred {
		cache.InvalidateTweets(ctx, ids...)
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, ids...)
	s.mu.Unlock()
}

func (s *cacheScope) flush(ctx context.Context) {
	s.mu.Lock()
	ids := s.pending
	s.pending = nil
	s.mu.Unlock()
	cache.InvalidateTweets(ctx, ids...)
}

// translate maps store errors onto the application error taxonomy.
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &models.AppError{Code: models.CodeConflict, Message: resource + " already exists", Err: err}
	default:
		return models.NewInternalError(err)
	}
}
