// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User is the identity collaborator's account row. The counters are denormalized
// aggregates that only change through the tweet and follow lifecycles.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FirstName      string    `gorm:"size:50;not null" json:"first_name"`
	LastName       string    `gorm:"size:50;not null" json:"last_name"`
	Username       string    `gorm:"size:15;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Bio            string    `gorm:"size:160" json:"bio"`
	ProfileImage   string    `json:"profile_image"`
	HeaderImage    string    `json:"header_image"`
	FollowersCount int       `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int       `gorm:"not null;default:0" json:"following_count"`
	TweetsCount    int       `gorm:"not null;default:0" json:"tweets_count"`
	Verified       bool      `gorm:"not null;default:false" json:"verified"`
	PrivateAccount bool      `gorm:"not null;default:false" json:"private_account"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserResponse is the public profile projection.
type UserResponse struct {
	ID             uint   `json:"id"`
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	ProfileImage   string `json:"profile_image"`
	HeaderImage    string `json:"header_image"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	TweetsCount    int    `json:"tweets_count"`
	Verified       bool   `json:"verified"`
	PrivateAccount bool   `json:"private_account"`
}

// ToResponse projects the user onto its public profile.
func (u User) ToResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		FullName:       u.FullName(),
		Username:       u.Username,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		HeaderImage:    u.HeaderImage,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		TweetsCount:    u.TweetsCount,
		Verified:       u.Verified,
		PrivateAccount: u.PrivateAccount,
	}
}
