package models

import (
	"time"
)

// TweetType discriminates the four tweet variants stored in the tweets table.
// The meaning of ParentTweetID depends entirely on it.
type TweetType string

const (
	// TweetTypeTweet is an original post without a parent.
	TweetTypeTweet TweetType = "TWEET"
	// TweetTypeReply answers ParentTweetID.
	TweetTypeReply TweetType = "REPLY"
	// TweetTypeRetweet re-shares ParentTweetID, which is never itself a retweet.
	TweetTypeRetweet TweetType = "RETWEET"
	// TweetTypeQuote re-shares ParentTweetID with new content.
	TweetTypeQuote TweetType = "QUOTE"
)

// MediaType describes an optional attachment.
type MediaType string

const (
	MediaTypeNone  MediaType = "NONE"
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeGIF   MediaType = "GIF"
	MediaTypeVideo MediaType = "VIDEO"
)

const (
	// MaxTweetLength is the maximum content length in characters.
	MaxTweetLength = 280
	// DeletedTweetPlaceholder replaces the visible content of soft-deleted tweets.
	DeletedTweetPlaceholder = "This tweet has been deleted"
)

// Tweet is the single mutable entity behind posts, replies, retweets and quotes.
type Tweet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	Content       string    `gorm:"size:280;not null" json:"content"`
	TweetType     TweetType `gorm:"type:varchar(10);not null;default:'TWEET';index" json:"tweet_type"`
	MediaURL      *string   `json:"media_url"`
	MediaType     MediaType `gorm:"type:varchar(10);not null;default:'NONE'" json:"media_type"`
	ParentTweetID *uint     `gorm:"index" json:"parent_tweet_id"`
	Parent        *Tweet    `gorm:"foreignKey:ParentTweetID" json:"-"`

	LikeCount int `gorm:"not null;default:0" json:"like_count"`
	// RetweetCount counts retweets and quotes together.
	RetweetCount int `gorm:"not null;default:0" json:"retweet_count"`
	ReplyCount   int `gorm:"not null;default:0" json:"reply_count"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deleted   bool       `gorm:"column:is_deleted;not null;default:false;index" json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at"`

	// Shadow copy of the payload taken at soft-delete time.
	OriginalContent   *string    `gorm:"size:280" json:"-"`
	OriginalMediaURL  *string    `json:"-"`
	OriginalMediaType *MediaType `gorm:"type:varchar(10)" json:"-"`
}

// TableName specifies the table name for GORM
func (Tweet) TableName() string {
	return "tweets"
}

// IsRetweet reports whether the tweet is a retweet shell.
func (t *Tweet) IsRetweet() bool {
	return t.TweetType == TweetTypeRetweet
}

// HasParent reports whether the variant carries a parent link.
func (t *Tweet) HasParent() bool {
	return t.ParentTweetID != nil
}

// Like records that a user likes a tweet. (UserID, TweetID) is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_tweet" json:"user_id"`
	TweetID   uint      `gorm:"not null;uniqueIndex:idx_likes_user_tweet;index" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}

// Follow is a directed edge from FollowerID to FollowedID.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
