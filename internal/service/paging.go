package service

import (
	"fmt"
	"strings"

	"chirp/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// sortColumns is the sort allow-list: API field name to tweets column.
var sortColumns = map[string]string{
	"id":           "id",
	"content":      "content",
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"likeCount":    "like_count",
	"retweetCount": "retweet_count",
	"replyCount":   "reply_count",
}

// NewPageRequest validates paging input. Each sort term is "field" or
// "field,asc|desc"; fields outside the allow-list fail before any query runs.
func NewPageRequest(page, size int, sort ...string) (models.PageRequest, error) {
	if page < 0 {
		return models.PageRequest{}, models.NewValidationError("page must not be negative")
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	req := models.PageRequest{Page: page, Size: size}
	for _, term := range sort {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		order, err := parseSortTerm(term)
		if err != nil {
			return models.PageRequest{}, err
		}
		req.Sort = append(req.Sort, order)
	}
	return req, nil
}

func parseSortTerm(term string) (models.SortOrder, error) {
	field, dir, _ := strings.Cut(term, ",")
	field = strings.TrimSpace(field)

	column, ok := sortColumns[field]
	if !ok {
		return models.SortOrder{}, models.NewValidationError(fmt.Sprintf("Invalid sort field: %s", field))
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return models.SortOrder{Field: column}, nil
	case "desc":
		return models.SortOrder{Field: column, Desc: true}, nil
	default:
		return models.SortOrder{}, models.NewValidationError(fmt.Sprintf("Invalid sort direction: %s", dir))
	}
}

// unsorted drops sort terms for listings whose rows are not tweets.
func unsorted(req models.PageRequest) models.PageRequest {
	req.Sort = nil
	return req
}
