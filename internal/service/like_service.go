package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LikeService maintains the like ledger and the tweets' like counts.
type LikeService struct {
	store  *repository.Store
	mapper *TweetMapper
}

func NewLikeService(store *repository.Store, mapper *TweetMapper) *LikeService {
	return &LikeService{store: store, mapper: mapper}
}

// ToggleLike likes or unlikes tweetID for userID. A retweet redirects to its
// original. The referenced tweet is returned rendered for userID.
func (s *LikeService) ToggleLike(ctx context.Context, tweetID, userID uint) (_ *models.TweetResponse, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "like", "toggle", attribute.Int("tweet.id", int(tweetID)))
	defer func() { span.Finish(err) }()

	state := "liked"
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		target, err := resolveLiveTarget(ctx, tx, tweetID, "Cannot like a deleted tweet")
		if err != nil {
			return err
		}

		removed, err := tx.Likes.Delete(ctx, userID, target.ID)
		if err != nil {
			return err
		}
		if removed {
			state = "unliked"
			return tx.Tweets.Decrement(ctx, target.ID, repository.TweetLikes)
		}

		created, err := tx.Likes.Create(ctx, userID, target.ID)
		if err != nil || !created {
			return err
		}
		return tx.Tweets.Increment(ctx, target.ID, repository.TweetLikes)
	})
	if err != nil {
		return nil, err
	}

	observability.LikeToggles.WithLabelValues(state).Inc()
	tweet, err := s.store.Fresh().Tweets.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(ctx, tweet, userID)
}

// ListLikedTweets pages through the tweets userID has liked.
func (s *LikeService) ListLikedTweets(ctx context.Context, userID, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return models.Page[models.TweetResponse]{}, err
	}
	tweets, total, err := s.store.Likes.ListLikedTweets(ctx, userID, req)
	return renderPage(ctx, s.mapper, tweets, total, err, req, viewerID)
}

// ListLikers pages through the users who liked tweetID.
func (s *LikeService) ListLikers(ctx context.Context, tweetID uint, req models.PageRequest) (models.Page[models.UserResponse], error) {
	if _, err := s.store.Tweets.GetByID(ctx, tweetID); err != nil {
		return models.Page[models.UserResponse]{}, err
	}
	req = unsorted(req)
	users, total, err := s.store.Likes.ListLikers(ctx, tweetID, req)
	if err != nil {
		return models.Page[models.UserResponse]{}, err
	}
	return models.NewPage(toUserResponses(users), req, total), nil
}
