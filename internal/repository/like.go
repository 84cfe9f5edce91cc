package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeLog = observability.NewRepoLogger("likes")

// LikeRepository is the like ledger: one row per (user, tweet) fact.
type LikeRepository interface {
	Create(ctx context.Context, userID, tweetID uint) (bool, error)
	Delete(ctx context.Context, userID, tweetID uint) (bool, error)
	Exists(ctx context.Context, userID, tweetID uint) (bool, error)
	LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error)
	CountByTweet(ctx context.Context, tweetID uint) (int64, error)
	ListLikers(ctx context.Context, tweetID uint, req models.PageRequest) ([]models.User, int64, error)
	ListLikedTweets(ctx context.Context, userID uint, req models.PageRequest) ([]models.Tweet, int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Create records the like and reports whether a new row was written.
// An existing (user, tweet) row is left as is.
func (r *likeRepository) Create(ctx context.Context, userID, tweetID uint) (bool, error) {
	like := models.Like{UserID: userID, TweetID: tweetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "tweet_id"}}, DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		likeLog.LogError(ctx, res.Error, "create")
		return false, translate(res.Error, "Like", tweetID)
	}
	if res.RowsAffected == 1 {
		likeLog.LogCreate(ctx, map[string]interface{}{"user_id": userID, "tweet_id": tweetID})
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the like and reports whether a row existed.
func (r *likeRepository) Delete(ctx context.Context, userID, tweetID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Delete(&models.Like{})
	if res.Error != nil {
		likeLog.LogError(ctx, res.Error, "delete")
		return false, translate(res.Error, "Like", tweetID)
	}
	if res.RowsAffected > 0 {
		likeLog.LogDelete(ctx, map[string]interface{}{"user_id": userID, "tweet_id": tweetID})
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, tweetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "Like", tweetID)
	}
	return count > 0, nil
}

// LikedTweetIDs returns the subset of tweetIDs that userID likes.
func (r *likeRepository) LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error) {
	tweetIDs = lo.Uniq(tweetIDs)
	if userID == 0 || len(tweetIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND tweet_id IN ?", userID, tweetIDs).
		Pluck("tweet_id", &liked).Error
	if err != nil {
		return nil, translate(err, "Like", tweetIDs)
	}
	return liked, nil
}

func (r *likeRepository) CountByTweet(ctx context.Context, tweetID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("tweet_id = ?", tweetID).Count(&count).Error
	if err != nil {
		return 0, translate(err, "Like", tweetID)
	}
	return count, nil
}

// ListLikers pages the users who like tweetID, most recent like first.
func (r *likeRepository) ListLikers(ctx context.Context, tweetID uint, req models.PageRequest) ([]models.User, int64, error) {
	build := func() *gorm.DB {
		return r.db.Model(&models.User{}).
			Joins("JOIN likes ON likes.user_id = users.id").
			Where("likes.tweet_id = ?", tweetID)
	}
	if len(req.Sort) == 0 {
		req.Sort = []models.SortOrder{{Field: "id", Desc: true}}
	}
	users, total, err := findPage[models.User](ctx, build, "users", req)
	if err != nil {
		return nil, 0, translate(err, "Like", tweetID)
	}
	return users, total, nil
}

// ListLikedTweets pages the tweets userID likes.
func (r *likeRepository) ListLikedTweets(ctx context.Context, userID uint, req models.PageRequest) ([]models.Tweet, int64, error) {
	build := func() *gorm.DB {
		return r.db.Model(&models.Tweet{}).
			Joins("JOIN likes ON likes.tweet_id = tweets.id").
			Where("likes.user_id = ?", userID)
	}
	tweets, total, err := findPage[models.Tweet](ctx, build, "tweets", req)
	if err != nil {
		return nil, 0, translate(err, "Like", userID)
	}
	return tweets, total, nil
}
