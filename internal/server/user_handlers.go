package server

import (
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// ListUserTweets handles GET /api/users/:id/tweets
func (s *Server) ListUserTweets(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.tweetService.ListByUser(c.UserContext(), userID, currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// ListUserLikes handles GET /api/users/:id/likes
func (s *Server) ListUserLikes(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.likeService.ListLikedTweets(c.UserContext(), userID, currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.followService.Follow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// IsFollowing handles GET /api/users/:id/following/:otherId
func (s *Server) IsFollowing(c *fiber.Ctx) error {
	followerID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	followedID, err := s.parseID(c, "otherId")
	if err != nil {
		return nil
	}

	following, err := s.followService.IsFollowing(c.UserContext(), followerID, followedID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// ListFollowers handles GET /api/users/:id/followers
func (s *Server) ListFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.followService.ListFollowers(c.UserContext(), userID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// ListFollowing handles GET /api/users/:id/following
func (s *Server) ListFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.followService.ListFollowing(c.UserContext(), userID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// ListMutuals handles GET /api/users/:id/mutuals
func (s *Server) ListMutuals(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.followService.ListMutuals(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}
