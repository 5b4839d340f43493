package storage

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"planner-stack/internal/models"
)

var keywordColumns = []string{
	"id", "text", "volume", "difficulty", "usage_count",
	"last_used_at", "category", "priority", "is_active", "created_at",
}

// KeywordRepository reads the tracked keyword pool and records usage after a
// confirmed successful generation.
type KeywordRepository struct {
	q Querier
}

func NewKeywordRepository(q Querier) *KeywordRepository {
	return &KeywordRepository{q: q}
}

// ListEligible returns active keywords passing the filter, ordered by id so
// the scorer always sees candidates in a reproducible order.
func (r *KeywordRepository) ListEligible(ctx context.Context, filter models.KeywordFilter) ([]models.Keyword, error) {
	query := psql.Select(keywordColumns...).
		From("keywords").
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("id ASC")

	if len(filter.IncludeCategories) > 0 {
		query = query.Where(squirrel.Eq{"category": filter.IncludeCategories})
	}
	if len(filter.ExcludeCategories) > 0 {
		query = query.Where(squirrel.NotEq{"category": filter.ExcludeCategories})
	}
	if filter.MinVolume != nil {
		query = query.Where(squirrel.GtOrEq{"volume": *filter.MinVolume})
	}
	if filter.MaxUsageCount != nil {
		query = query.Where(squirrel.LtOrEq{"usage_count": *filter.MaxUsageCount})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build eligible keywords query: %w", err)
	}

	var keywords []models.Keyword
	if err := pgxscan.Select(ctx, r.q, &keywords, sql, args...); err != nil {
		return nil, fmt.Errorf("failed to list eligible keywords: %w", err)
	}
	return keywords, nil
}

// RecordUsage bumps usage_count and last_used_at in a single statement so the
// increment is atomic even if two writers race.
func (r *KeywordRepository) RecordUsage(ctx context.Context, id uuid.UUID) error {
	sql, args, err := psql.Update("keywords").
		Set("usage_count", squirrel.Expr("usage_count + 1")).
		Set("last_used_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build usage update: %w", err)
	}

	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to record usage for keyword %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("keyword %s: %w", id, ErrKeywordNotFound)
	}
	return nil
}
