package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var followLog = observability.NewRepoLogger("follows")

// FollowRepository stores directed follow edges.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID uint) error
	Delete(ctx context.Context, followerID, followedID uint) (bool, error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint, req models.PageRequest) ([]models.User, int64, error)
	ListFollowing(ctx context.Context, userID uint, req models.PageRequest) ([]models.User, int64, error)
	ListMutuals(ctx context.Context, userID uint) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the edge. A duplicate edge surfaces as a Conflict error.
func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) error {
	follow := models.Follow{FollowerID: followerID, FollowedID: followedID}
	if err := r.db.WithContext(ctx).Create(&follow).Error; err != nil {
		followLog.LogError(ctx, err, "create")
		return translate(err, "Follow", followedID)
	}
	followLog.LogCreate(ctx, map[string]interface{}{"follower_id": followerID, "followed_id": followedID})
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		followLog.LogError(ctx, res.Error, "delete")
		return false, translate(res.Error, "Follow", followedID)
	}
	if res.RowsAffected > 0 {
		followLog.LogDelete(ctx, map[string]interface{}{"follower_id": followerID, "followed_id": followedID})
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "Follow", followedID)
	}
	return count > 0, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint, req models.PageRequest) ([]models.User, int64, error) {
	return r.page(ctx, req, "follows.follower_id", "follows.followed_id", userID)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint, req models.PageRequest) ([]models.User, int64, error) {
	return r.page(ctx, req, "follows.followed_id", "follows.follower_id", userID)
}

// page lists users joined on joinCol where filterCol = userID.
func (r *followRepository) page(ctx context.Context, req models.PageRequest, joinCol, filterCol string, userID uint) ([]models.User, int64, error) {
	build := func() *gorm.DB {
		return r.db.Model(&models.User{}).
			Joins("JOIN follows ON "+joinCol+" = users.id").
			Where(filterCol+" = ?", userID)
	}
	if len(req.Sort) == 0 {
		req.Sort = []models.SortOrder{{Field: "username"}}
	}
	users, total, err := findPage[models.User](ctx, build, "users", req)
	if err != nil {
		return nil, 0, translate(err, "Follow", userID)
	}
	return users, total, nil
}

// ListMutuals returns the users userID follows who also follow userID back.
func (r *followRepository) ListMutuals(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows AS outgoing ON outgoing.followed_id = users.id AND outgoing.follower_id = ?", userID).
		Joins("JOIN follows AS incoming ON incoming.follower_id = users.id AND incoming.followed_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "users", Name: "username"}}).
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "Follow", userID)
	}
	return users, nil
}
