package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var userLog = observability.NewRepoLogger("users")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Increment(ctx context.Context, id uint, c Counter) error
	Decrement(ctx context.Context, id uint, c Counter) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		userLog.LogError(ctx, err, "create")
		return translate(err, "User", user.Username)
	}
	userLog.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return map[uint]models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err, "User", ids)
	}
	return lo.KeyBy(users, func(u models.User) uint { return u.ID }), nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translate(err, "User", id)
	}
	return count > 0, nil
}

// Search matches username or full name case-insensitively.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := containsPattern(query)
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(first_name || ' ' || last_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "followers_count"}, Desc: true}).
		Order("id").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "User", query)
	}
	return users, nil
}

func (r *userRepository) Increment(ctx context.Context, id uint, c Counter) error {
	return r.adjust(ctx, id, c, true)
}

func (r *userRepository) Decrement(ctx context.Context, id uint, c Counter) error {
	return r.adjust(ctx, id, c, false)
}

func (r *userRepository) adjust(ctx context.Context, id uint, c Counter, up bool) error {
	if err := adjust(r.db.WithContext(ctx), &models.User{}, userCounters, id, c, up); err != nil {
		userLog.LogError(ctx, err, "adjust_"+string(c))
		return translate(err, "User", id)
	}
	return nil
}
