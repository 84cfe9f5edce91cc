package server

import (
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Search handles GET /api/search?q=...
func (s *Server) Search(c *fiber.Ctx) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	res, err := s.searchService.Search(c.UserContext(), c.Query("q"), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// SearchHashtag handles GET /api/search/hashtag/:tag
func (s *Server) SearchHashtag(c *fiber.Ctx) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.searchService.SearchHashtag(c.UserContext(), c.Params("tag"), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}
