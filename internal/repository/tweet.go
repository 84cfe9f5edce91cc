package repository

import (
	"context"
	"errors"
	"time"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tweetLog = observability.NewRepoLogger("tweets")

// TweetUpdate carries the author-editable fields; nil fields are left untouched.
type TweetUpdate struct {
	Content   *string
	MediaURL  *string
	MediaType *models.MediaType
	At        time.Time
}

// TweetRepository defines persistence operations for tweets of every variant.
type TweetRepository interface {
	Create(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id uint) (*models.Tweet, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Tweet, error)
	Update(ctx context.Context, id uint, upd TweetUpdate) error
	SoftDelete(ctx context.Context, id uint, at time.Time) (bool, error)
	HardDelete(ctx context.Context, ids ...uint) error

	FindRetweet(ctx context.Context, userID, originalID uint) (*models.Tweet, error)
	ListRetweets(ctx context.Context, originalID uint) ([]models.Tweet, error)
	RetweetIDs(ctx context.Context, userID uint, originalIDs []uint) (map[uint]uint, error)

	List(ctx context.Context, req models.PageRequest) ([]models.Tweet, int64, error)
	ListByUser(ctx context.Context, userID uint, req models.PageRequest) ([]models.Tweet, int64, error)
	ListReplies(ctx context.Context, parentID uint, req models.PageRequest) ([]models.Tweet, int64, error)
	ListTimeline(ctx context.Context, viewerID uint, req models.PageRequest) ([]models.Tweet, int64, error)
	Search(ctx context.Context, query string, req models.PageRequest) ([]models.Tweet, int64, error)
	SearchHashtag(ctx context.Context, tag string, req models.PageRequest) ([]models.Tweet, int64, error)

	Increment(ctx context.Context, id uint, c Counter) error
	Decrement(ctx context.Context, id uint, c Counter) error
}

type tweetRepository struct {
	db    *gorm.DB
	scope *cacheScope
}

// NewTweetRepository returns a TweetRepository with cached reads.
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{db: db, scope: &cacheScope{read: true}}
}

func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(tweet).Error; err != nil {
		tweetLog.LogError(ctx, err, "create")
		return translate(err, "Tweet", tweet.ID)
	}
	tweetLog.LogCreate(ctx, map[string]interface{}{
		"tweet_id":   tweet.ID,
		"tweet_type": tweet.TweetType,
		"user_id":    tweet.UserID,
	})
	return nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id uint) (*models.Tweet, error) {
	var tweet models.Tweet
	load := func() error {
		return r.db.WithContext(ctx).First(&tweet, id).Error
	}

	var err error
	if r.scope.read {
		err = cache.Aside(ctx, cache.TweetKey(id), &tweet, cache.TweetTTL, load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, translate(err, "Tweet", id)
	}
	return &tweet, nil
}

func (r *tweetRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Tweet, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return map[uint]*models.Tweet{}, nil
	}
	var tweets []*models.Tweet
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tweets).Error; err != nil {
		return nil, translate(err, "Tweet", ids)
	}
	return lo.KeyBy(tweets, func(t *models.Tweet) uint { return t.ID }), nil
}

func (r *tweetRepository) Update(ctx context.Context, id uint, upd TweetUpdate) error {
	fields := map[string]interface{}{"updated_at": upd.At}
	if upd.Content != nil {
		fields["content"] = *upd.Content
	}
	if upd.MediaURL != nil {
		fields["media_url"] = *upd.MediaURL
	}
	if upd.MediaType != nil {
		fields["media_type"] = *upd.MediaType
	}

	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).Where("id = ?", id).UpdateColumns(fields).Error; err != nil {
		tweetLog.LogError(ctx, err, "update")
		return translate(err, "Tweet", id)
	}
	r.scope.invalidate(ctx, id)
	tweetLog.LogUpdate(ctx, map[string]interface{}{"tweet_id": id})
	return nil
}

// SoftDelete copies the visible payload into the shadow columns and masks it in
// one statement. It reports false when the tweet was already deleted.
func (r *tweetRepository) SoftDelete(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("id = ? AND is_deleted = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"original_content":    gorm.Expr("content"),
			"original_media_url":  gorm.Expr("media_url"),
			"original_media_type": gorm.Expr("media_type"),
			"content":             models.DeletedTweetPlaceholder,
			"media_url":           nil,
			"media_type":          models.MediaTypeNone,
			"is_deleted":          true,
			"deleted_at":          at,
			"updated_at":          at,
		})
	if res.Error != nil {
		tweetLog.LogError(ctx, res.Error, "soft_delete")
		return false, translate(res.Error, "Tweet", id)
	}
	r.scope.invalidate(ctx, id)
	tweetLog.LogDelete(ctx, map[string]interface{}{"tweet_id": id, "soft": true})
	return res.RowsAffected == 1, nil
}

func (r *tweetRepository) HardDelete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Tweet{}).Error; err != nil {
		tweetLog.LogError(ctx, err, "hard_delete")
		return translate(err, "Tweet", ids)
	}
	r.scope.invalidate(ctx, ids...)
	tweetLog.LogDelete(ctx, map[string]interface{}{"tweet_ids": ids, "soft": false})
	return nil
}

// FindRetweet returns the user's retweet of originalID, or nil when there is none.
func (r *tweetRepository) FindRetweet(ctx context.Context, userID, originalID uint) (*models.Tweet, error) {
	var tweet models.Tweet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND parent_tweet_id = ? AND tweet_type = ?", userID, originalID, models.TweetTypeRetweet).
		Take(&tweet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "Tweet", originalID)
	}
	return &tweet, nil
}

func (r *tweetRepository) ListRetweets(ctx context.Context, originalID uint) ([]models.Tweet, error) {
	var tweets []models.Tweet
	err := r.db.WithContext(ctx).
		Where("parent_tweet_id = ? AND tweet_type = ?", originalID, models.TweetTypeRetweet).
		Order("id").
		Find(&tweets).Error
	if err != nil {
		return nil, translate(err, "Tweet", originalID)
	}
	return tweets, nil
}

// RetweetIDs maps each original in originalIDs that userID has retweeted to the retweet's id.
func (r *tweetRepository) RetweetIDs(ctx context.Context, userID uint, originalIDs []uint) (map[uint]uint, error) {
	out := map[uint]uint{}
	originalIDs = lo.Uniq(originalIDs)
	if userID == 0 || len(originalIDs) == 0 {
		return out, nil
	}
	var rows []models.Tweet
	err := r.db.WithContext(ctx).
		Select("id", "parent_tweet_id").
		Where("user_id = ? AND tweet_type = ? AND parent_tweet_id IN ?", userID, models.TweetTypeRetweet, originalIDs).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "Tweet", originalIDs)
	}
	for _, row := range rows {
		if row.HasParent() {
			out[*row.ParentTweetID] = row.ID
		}
	}
	return out, nil
}

func (r *tweetRepository) List(ctx context.Context, req models.PageRequest) ([]models.Tweet, int64, error) {
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB { return q })
}

func (r *tweetRepository) ListByUser(ctx context.Context, userID uint, req models.PageRequest) ([]models.Tweet, int64, error) {
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB {
		return q.Where("tweets.user_id = ?", userID)
	})
}

func (r *tweetRepository) ListReplies(ctx context.Context, parentID uint, req models.PageRequest) ([]models.Tweet, int64, error) {
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB {
		return q.Where("tweets.parent_tweet_id = ? AND tweets.tweet_type = ?", parentID, models.TweetTypeReply)
	})
}

// ListTimeline returns live tweets by the viewer and everyone the viewer follows.
func (r *tweetRepository) ListTimeline(ctx context.Context, viewerID uint, req models.PageRequest) ([]models.Tweet, int64, error) {
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB {
		followed := q.Session(&gorm.Session{NewDB: true}).
			Model(&models.Follow{}).
			Select("followed_id").
			Where("follower_id = ?", viewerID)
		return q.Where("tweets.is_deleted = ?", false).
			Where("tweets.user_id = ? OR tweets.user_id IN (?)", viewerID, followed)
	})
}

// Search matches live, non-retweet tweets whose content or author username contains query.
func (r *tweetRepository) Search(ctx context.Context, query string, req models.PageRequest) ([]models.Tweet, int64, error) {
	pattern := containsPattern(query)
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB {
		return q.Joins("JOIN users ON users.id = tweets.user_id").
			Where("tweets.is_deleted = ? AND tweets.tweet_type <> ?", false, models.TweetTypeRetweet).
			Where(`LOWER(tweets.content) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\'`, pattern, pattern)
	})
}

func (r *tweetRepository) SearchHashtag(ctx context.Context, tag string, req models.PageRequest) ([]models.Tweet, int64, error) {
	pattern := containsPattern("#" + tag)
	return r.page(ctx, req, func(q *gorm.DB) *gorm.DB {
		return q.Where("tweets.is_deleted = ? AND tweets.tweet_type <> ?", false, models.TweetTypeRetweet).
			Where(`LOWER(tweets.content) LIKE ? ESCAPE '\'`, pattern)
	})
}

func (r *tweetRepository) page(ctx context.Context, req models.PageRequest, filter func(*gorm.DB) *gorm.DB) ([]models.Tweet, int64, error) {
	done := observability.TrackQuery("select", "tweets")
	defer done()

	build := func() *gorm.DB {
		return filter(r.db.Model(&models.Tweet{}))
	}
	tweets, total, err := findPage[models.Tweet](ctx, build, "tweets", req)
	if err != nil {
		return nil, 0, translate(err, "Tweet", "page")
	}
	return tweets, total, nil
}

func (r *tweetRepository) Increment(ctx context.Context, id uint, c Counter) error {
	return r.adjust(ctx, id, c, true)
}

func (r *tweetRepository) Decrement(ctx context.Context, id uint, c Counter) error {
	return r.adjust(ctx, id, c, false)
}

func (r *tweetRepository) adjust(ctx context.Context, id uint, c Counter, up bool) error {
	if err := adjust(r.db.WithContext(ctx), &models.Tweet{}, tweetCounters, id, c, up); err != nil {
		tweetLog.LogError(ctx, err, "adjust_"+string(c))
		return translate(err, "Tweet", id)
	}
	r.scope.invalidate(ctx, id)
	return nil
}
