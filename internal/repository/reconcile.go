package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// Recount describes how to recompute one denormalized counter from its fact rows.
type Recount struct {
	Name    string
	Table   string
	Counter Counter
	// Source is a correlated subquery over the outer Table row.
	Source     string
	SourceArgs []interface{}
	// Scope optionally limits which rows are audited.
	Scope     string
	ScopeArgs []interface{}
}

// Recounts lists every counter the reconciler audits.
//
// Deleted tweets keep the amplification count they had when masked, so only live
// tweets are audited for it. Reply counts keep tracking live replies after the
// parent is deleted.
var Recounts = []Recount{
	{
		Name:    "tweet_likes",
		Table:   "tweets",
		Counter: TweetLikes,
		Source:  "SELECT COUNT(*) FROM likes WHERE likes.tweet_id = tweets.id",
	},
	{
		Name:       "tweet_retweets",
		Table:      "tweets",
		Counter:    TweetRetweets,
		Source:     "SELECT COUNT(*) FROM tweets AS child WHERE child.parent_tweet_id = tweets.id AND child.tweet_type IN (?, ?)",
		SourceArgs: []interface{}{models.TweetTypeRetweet, models.TweetTypeQuote},
		Scope:      "tweets.is_deleted = ?",
		ScopeArgs:  []interface{}{false},
	},
	{
		Name:       "tweet_replies",
		Table:      "tweets",
		Counter:    TweetReplies,
		Source:     "SELECT COUNT(*) FROM tweets AS child WHERE child.parent_tweet_id = tweets.id AND child.tweet_type = ? AND child.is_deleted = ?",
		SourceArgs: []interface{}{models.TweetTypeReply, false},
	},
	{
		Name:       "user_tweets",
		Table:      "users",
		Counter:    UserTweets,
		Source:     "SELECT COUNT(*) FROM tweets WHERE tweets.user_id = users.id AND tweets.is_deleted = ?",
		SourceArgs: []interface{}{false},
	},
	{
		Name:    "user_followers",
		Table:   "users",
		Counter: UserFollowers,
		Source:  "SELECT COUNT(*) FROM follows WHERE follows.followed_id = users.id",
	},
	{
		Name:    "user_following",
		Table:   "users",
		Counter: UserFollowing,
		Source:  "SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id",
	},
}

// CounterRepository audits and repairs denormalized counters.
type CounterRepository interface {
	// Repair rewrites every drifted row of rc and returns the repaired row ids.
	Repair(ctx context.Context, rc Recount) ([]uint, error)
}

type counterRepository struct {
	db    *gorm.DB
	scope *cacheScope
}

func (r *counterRepository) Repair(ctx context.Context, rc Recount) ([]uint, error) {
	source := gorm.Expr("("+rc.Source+")", rc.SourceArgs...)

	q := r.db.WithContext(ctx).Table(rc.Table).Where(string(rc.Counter)+" <> ?", source)
	if rc.Scope != "" {
		q = q.Where(rc.Scope, rc.ScopeArgs...)
	}

	var ids []uint
	if err := q.Pluck(rc.Table+".id", &ids).Error; err != nil {
		return nil, translate(err, rc.Name, "drift")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).Table(rc.Table).
		Where("id IN ?", ids).
		UpdateColumn(string(rc.Counter), source).Error
	if err != nil {
		return nil, translate(err, rc.Name, ids)
	}
	if rc.Table == "tweets" {
		r.scope.invalidate(ctx, ids...)
	}
	return ids, nil
}
