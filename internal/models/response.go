package models

import "time"

// TweetResponse is a tweet rendered for one viewer.
type TweetResponse struct {
	ID           uint       `json:"id"`
	UserID       uint       `json:"user_id"`
	Content      string     `json:"content"`
	TweetType    TweetType  `json:"tweet_type"`
	MediaURL     *string    `json:"media_url"`
	MediaType    *MediaType `json:"media_type"`
	LikeCount    int        `json:"like_count"`
	RetweetCount int        `json:"retweet_count"`
	ReplyCount   int        `json:"reply_count"`
	CreatedAt    time.Time  `json:"created_at"`

	Username         string `json:"username"`
	UserFullName     string `json:"user_full_name"`
	UserProfileImage string `json:"user_profile_image"`

	Liked     bool  `json:"liked"`
	Retweeted bool  `json:"retweeted"`
	RetweetID *uint `json:"retweet_id,omitempty"`

	// Author of the retweeted original or of the replied-to parent.
	OriginalUsername         string `json:"original_username,omitempty"`
	OriginalUserFullName     string `json:"original_user_full_name,omitempty"`
	OriginalUserProfileImage string `json:"original_user_profile_image,omitempty"`

	ParentTweetID      *uint      `json:"parent_tweet_id,omitempty"`
	ParentTweetUserID  *uint      `json:"parent_tweet_user_id,omitempty"`
	ParentTweetDeleted bool       `json:"parent_tweet_deleted"`
	RetweetedAt        *time.Time `json:"retweeted_at,omitempty"`

	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TweetDetailResponse adds the immediate parent and the root-to-leaf ancestor chain.
type TweetDetailResponse struct {
	TweetResponse
	ParentTweet        *TweetResponse  `json:"parent_tweet,omitempty"`
	ConversationThread []TweetResponse `json:"conversation_thread"`
	PartOfThread       bool            `json:"part_of_thread"`
}

// ShadowResponse exposes the pre-deletion payload of a soft-deleted tweet.
type ShadowResponse struct {
	ID                uint       `json:"id"`
	OriginalContent   *string    `json:"original_content"`
	OriginalMediaURL  *string    `json:"original_media_url"`
	OriginalMediaType *MediaType `json:"original_media_type"`
	DeletedAt         *time.Time `json:"deleted_at"`
}

// SearchResponse bundles tweet and user matches.
type SearchResponse struct {
	Tweets Page[TweetResponse] `json:"tweets"`
	Users  []UserResponse      `json:"users"`
}
