package service

import (
	"context"
	"strings"

	"chirp/internal/models"
	"chirp/internal/repository"
)

// searchUserLimit caps the users returned next to a tweet search page.
const searchUserLimit = 10

// SearchService runs content and hashtag searches over live original tweets.
type SearchService struct {
	store  *repository.Store
	mapper *TweetMapper
}

func NewSearchService(store *repository.Store, mapper *TweetMapper) *SearchService {
	return &SearchService{store: store, mapper: mapper}
}

// Search matches query against tweet content and user names.
func (s *SearchService) Search(ctx context.Context, query string, viewerID uint, req models.PageRequest) (*models.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	tweets, total, err := s.store.Tweets.Search(ctx, query, req)
	page, err := renderPage(ctx, s.mapper, tweets, total, err, req, viewerID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.Search(ctx, query, searchUserLimit)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{Tweets: page, Users: toUserResponses(users)}, nil
}

// SearchHashtag pages through tweets tagged with tag, with or without its '#'.
func (s *SearchService) SearchHashtag(ctx context.Context, tag string, viewerID uint, req models.PageRequest) (models.Page[models.TweetResponse], error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" || strings.ContainsAny(tag, " \t\n#") {
		return models.Page[models.TweetResponse]{}, models.NewValidationError("Invalid hashtag")
	}
	tweets, total, err := s.store.Tweets.SearchHashtag(ctx, tag, req)
	return renderPage(ctx, s.mapper, tweets, total, err, req, viewerID)
}
