package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/repository"

	"github.com/samber/lo"
)

// UserService exposes user profiles with their denormalized counters.
type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

// GetUser returns the public profile of id.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func toUserResponses(users []models.User) []models.UserResponse {
	return lo.Map(users, func(u models.User, _ int) models.UserResponse { return u.ToResponse() })
}
