package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"planner-stack/internal/models"
)

// PlanStore persists generated content plans.
type PlanStore struct {
	q Querier
}

func NewPlanStore(q Querier) *PlanStore {
	return &PlanStore{q: q}
}

func (s *PlanStore) Create(ctx context.Context, plan *models.ContentPlan) error {
	outlineJSON, err := json.Marshal(plan.Outline)
	if err != nil {
		return fmt.Errorf("failed to marshal outline: %w", err)
	}
	tagsJSON, err := json.Marshal(plan.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	sql, args, err := psql.Insert("content_plans").
		Columns("id", "batch_id", "keyword_id", "keyword_text", "title", "hook",
			"outline", "description", "tags", "research_note", "model", "created_at").
		Values(plan.ID, plan.BatchID, plan.KeywordID, plan.KeywordText, plan.Title, plan.Hook,
			outlineJSON, plan.Description, tagsJSON, plan.ResearchNote, plan.Model, plan.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build plan insert: %w", err)
	}

	if _, err := s.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to store plan for keyword %s: %w", plan.KeywordID, err)
	}
	return nil
}
