package server

import (
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateTweet handles POST /api/tweets
func (s *Server) CreateTweet(c *fiber.Ctx) error {
	form, err := readTweetForm(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tweet, err := s.tweetService.CreatePost(c.UserContext(), service.CreateTweetInput{
		AuthorID: currentUserID(c),
		Content:  form.content(),
		Media:    form.Media,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tweet)
}

// ReplyToTweet handles POST /api/tweets/:id/replies
func (s *Server) ReplyToTweet(c *fiber.Ctx) error {
	parentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := readTweetForm(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tweet, err := s.tweetService.Reply(c.UserContext(), parentID, service.CreateTweetInput{
		AuthorID: currentUserID(c),
		Content:  form.content(),
		Media:    form.Media,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tweet)
}

// QuoteTweet handles POST /api/tweets/:id/quote
func (s *Server) QuoteTweet(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := readTweetForm(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tweet, err := s.tweetService.Quote(c.UserContext(), targetID, service.CreateTweetInput{
		AuthorID: currentUserID(c),
		Content:  form.content(),
		Media:    form.Media,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tweet)
}

// ToggleRetweet handles POST /api/tweets/:id/retweet
func (s *Server) ToggleRetweet(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.tweetService.Retweet(c.UserContext(), targetID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tweet)
}

// UpdateTweet handles PATCH /api/tweets/:id
func (s *Server) UpdateTweet(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := readTweetForm(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	tweet, err := s.tweetService.Update(c.UserContext(), service.UpdateTweetInput{
		TweetID:     tweetID,
		RequesterID: currentUserID(c),
		Content:     form.Content,
		Media:       form.Media,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tweet)
}

// DeleteTweet handles DELETE /api/tweets/:id
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.tweetService.Delete(c.UserContext(), tweetID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tweet)
}

// ToggleLike handles POST /api/tweets/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.likeService.ToggleLike(c.UserContext(), tweetID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tweet)
}

// GetTweet handles GET /api/tweets/:id
func (s *Server) GetTweet(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.tweetService.GetByID(c.UserContext(), tweetID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(detail)
}

// GetShadow handles GET /api/tweets/:id/shadow
func (s *Server) GetShadow(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	shadow, err := s.tweetService.GetShadow(c.UserContext(), tweetID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(shadow)
}

// ListReplies handles GET /api/tweets/:id/replies
func (s *Server) ListReplies(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.tweetService.ListReplies(c.UserContext(), tweetID, currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// ListLikers handles GET /api/tweets/:id/likes
func (s *Server) ListLikers(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.likeService.ListLikers(c.UserContext(), tweetID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// ListFeed handles GET /api/tweets
func (s *Server) ListFeed(c *fiber.Ctx) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.tweetService.ListFeed(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// HomeTimeline handles GET /api/timeline
func (s *Server) HomeTimeline(c *fiber.Ctx) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.tweetService.ListHomeTimeline(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}
