package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"planner-stack/internal/models"
)

// BatchStore persists AutoPlanBatch records. The store is the authority for
// "is a batch currently running": the insert itself is the exclusivity guard.
type BatchStore struct {
	q Querier
}

func NewBatchStore(q Querier) *BatchStore {
	return &BatchStore{q: q}
}

// createRunningSQL inserts the new batch only when no row currently holds the
// running status. Doing the check and the insert in one statement makes the
// guard atomic in the database rather than in process memory.
const createRunningSQL = `
INSERT INTO auto_plan_batches
    (id, triggered_at, triggered_by, status, target_count, total_plans, completed_plans, failed_plans)
SELECT $1, $2, $3, $4, $5, 0, 0, 0
WHERE NOT EXISTS (
    SELECT 1 FROM auto_plan_batches WHERE status = $6
)`

// CreateRunning persists a freshly triggered batch with status running.
// Returns ErrBatchConflict when another batch already holds running.
func (s *BatchStore) CreateRunning(ctx context.Context, batch *models.AutoPlanBatch) error {
	tag, err := s.q.Exec(ctx, createRunningSQL,
		batch.ID,
		batch.TriggeredAt,
		batch.TriggeredBy,
		models.BatchStatusRunning,
		batch.TargetCount,
		models.BatchStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch %s: %w", batch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchConflict
	}
	return nil
}

// Update replaces the mutable columns of the batch row. Snapshot-shaped
// fields (trend data, selections, results, error log) are stored as JSONB.
func (s *BatchStore) Update(ctx context.Context, batch *models.AutoPlanBatch) error {
	trendJSON, err := marshalNullable(batch.TrendData)
	if err != nil {
		return fmt.Errorf("failed to marshal trend data: %w", err)
	}
	selectedJSON, err := marshalNullable(batch.SelectedKeywords)
	if err != nil {
		return fmt.Errorf("failed to marshal selected keywords: %w", err)
	}
	resultsJSON, err := marshalNullable(batch.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	errorLogJSON, err := marshalNullable(batch.ErrorLog)
	if err != nil {
		return fmt.Errorf("failed to marshal error log: %w", err)
	}

	sql, args, err := psql.Update("auto_plan_batches").
		Set("status", batch.Status).
		Set("total_plans", batch.TotalPlans).
		Set("completed_plans", batch.CompletedPlans).
		Set("failed_plans", batch.FailedPlans).
		Set("trend_data", trendJSON).
		Set("selected_keywords", selectedJSON).
		Set("results", resultsJSON).
		Set("error_log", errorLogJSON).
		Set("error", nullableString(batch.Error)).
		Set("completed_at", batch.CompletedAt).
		Where(squirrel.Eq{"id": batch.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build batch update: %w", err)
	}

	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", batch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batch.ID, ErrBatchNotFound)
	}
	return nil
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *models.TrendData:
		if t == nil {
			return nil, nil
		}
	case []models.SelectedKeyword:
		if len(t) == 0 {
			return nil, nil
		}
	case []models.ItemResult:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
