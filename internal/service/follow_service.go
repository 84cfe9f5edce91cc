package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowService maintains the follow graph and both sides' follow counters.
type FollowService struct {
	store *repository.Store
}

func NewFollowService(store *repository.Store) *FollowService {
	return &FollowService{store: store}
}

// Follow adds the edge followerID -> followedID and returns the followed user.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID uint) (_ *models.UserResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "follow", "follow", attribute.Int("user.followed_id", int(followedID)))
	defer func() { span.Finish(err) }()

	if followerID == followedID {
		return nil, models.NewForbiddenError("You cannot follow yourself")
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, followedID); err != nil {
			return err
		}
		if err := requireUser(ctx, tx, followerID); err != nil {
			return err
		}
		exists, err := tx.Follows.Exists(ctx, followerID, followedID)
		if err != nil {
			return err
		}
		if exists {
			return models.NewConflictError("You are already following this user")
		}
		if err := tx.Follows.Create(ctx, followerID, followedID); err != nil {
			return err
		}
		if err := tx.Users.Increment(ctx, followedID, repository.UserFollowers); err != nil {
			return err
		}
		return tx.Users.Increment(ctx, followerID, repository.UserFollowing)
	})
	if err != nil {
		return nil, err
	}

	observability.FollowChanges.WithLabelValues("follow").Inc()
	return s.profile(ctx, followedID)
}

// Unfollow removes the edge followerID -> followedID and returns the formerly
// followed user.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) (_ *models.UserResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "follow", "unfollow", attribute.Int("user.followed_id", int(followedID)))
	defer func() { span.Finish(err) }()

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, followedID); err != nil {
			return err
		}
		removed, err := tx.Follows.Delete(ctx, followerID, followedID)
		if err != nil {
			return err
		}
		if !removed {
			return models.NewNotFoundError("Follow relationship", followedID)
		}
		if err := tx.Users.Decrement(ctx, followedID, repository.UserFollowers); err != nil {
			return err
		}
		return tx.Users.Decrement(ctx, followerID, repository.UserFollowing)
	})
	if err != nil {
		return nil, err
	}

	observability.FollowChanges.WithLabelValues("unfollow").Inc()
	return s.profile(ctx, followedID)
}

// IsFollowing reports whether followerID follows followedID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	if err := requireUser(ctx, s.store, followedID); err != nil {
		return false, err
	}
	return s.store.Follows.Exists(ctx, followerID, followedID)
}

// ListFollowers pages through the users following userID.
func (s *FollowService) ListFollowers(ctx context.Context, userID uint, req models.PageRequest) (models.Page[models.UserResponse], error) {
	return s.listUsers(ctx, userID, req, s.store.Follows.ListFollowers)
}

// ListFollowing pages through the users userID follows.
func (s *FollowService) ListFollowing(ctx context.Context, userID uint, req models.PageRequest) (models.Page[models.UserResponse], error) {
	return s.listUsers(ctx, userID, req, s.store.Follows.ListFollowing)
}

// ListMutuals returns the users that follow userID back.
func (s *FollowService) ListMutuals(ctx context.Context, userID uint) ([]models.UserResponse, error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	users, err := s.store.Follows.ListMutuals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *FollowService) listUsers(
	ctx context.Context,
	userID uint,
	req models.PageRequest,
	list func(context.Context, uint, models.PageRequest) ([]models.User, int64, error),
) (models.Page[models.UserResponse], error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return models.Page[models.UserResponse]{}, err
	}
	req = unsorted(req)
	users, total, err := list(ctx, userID, req)
	if err != nil {
		return models.Page[models.UserResponse]{}, err
	}
	return models.NewPage(toUserResponses(users), req, total), nil
}

func (s *FollowService) profile(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}
