package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter names a denormalized counter column.
type Counter string

const (
	TweetLikes    Counter = "like_count"
	TweetRetweets Counter = "retweet_count"
	TweetReplies  Counter = "reply_count"

	UserTweets    Counter = "tweets_count"
	UserFollowers Counter = "followers_count"
	UserFollowing Counter = "following_count"
)

var (
	tweetCounters = map[Counter]bool{TweetLikes: true, TweetRetweets: true, TweetReplies: true}
	userCounters  = map[Counter]bool{UserTweets: true, UserFollowers: true, UserFollowing: true}
)

func incrementExpr(c Counter) clause.Expr {
	return gorm.Expr(string(c) + " + 1")
}

// decrementExpr clamps at zero so a counter never goes negative.
func decrementExpr(c Counter) clause.Expr {
	col := string(c)
	return gorm.Expr("CASE WHEN " + col + " > 0 THEN " + col + " - 1 ELSE 0 END")
}

// adjust applies an in-place +1/-1 to counter on the row id of model's table.
// UpdateColumn leaves updated_at alone.
func adjust(db *gorm.DB, model interface{}, allowed map[Counter]bool, id uint, c Counter, up bool) error {
	if !allowed[c] {
		return fmt.Errorf("counter %q is not defined for this table", c)
	}
	expr := decrementExpr(c)
	if up {
		expr = incrementExpr(c)
	}
	return db.Model(model).Where("id = ?", id).UpdateColumn(string(c), expr).Error
}
