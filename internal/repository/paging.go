package repository

import (
	"context"
	"strings"

	"chirp/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderBy applies the requested sort columns, newest first by default, with id as tie-breaker.
func orderBy(q *gorm.DB, table string, sort []models.SortOrder) *gorm.DB {
	if len(sort) == 0 {
		sort = []models.SortOrder{{Field: "created_at", Desc: true}}
	}
	for _, s := range sort {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: s.Field}, Desc: s.Desc})
	}
	return q.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}, Desc: true})
}

// findPage counts and loads one page of table rows. build must return a fresh query each call.
func findPage[T any](ctx context.Context, build func() *gorm.DB, table string, req models.PageRequest) ([]T, int64, error) {
	var total int64
	if err := build().WithContext(ctx).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := []T{}
	if total == 0 || req.Offset() >= int(total) {
		return rows, total, nil
	}
	err := orderBy(build().WithContext(ctx).Select(table+".*"), table, req.Sort).
		Limit(req.Size).
		Offset(req.Offset()).
		Find(&rows).Error
	return rows, total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
