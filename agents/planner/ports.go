package planner

import (
	"context"

	"github.com/google/uuid"

	"planner-stack/internal/models"
)

// Collaborator contracts the coordinator depends on. Defined on the consumer
// side so the coordinator stays testable without network or database access.

// KeywordSource reads the tracked keyword pool and records usage after a
// confirmed successful generation.
type KeywordSource interface {
	ListEligible(ctx context.Context, filter models.KeywordFilter) ([]models.Keyword, error)
	RecordUsage(ctx context.Context, id uuid.UUID) error
}

// TrendSource produces a fresh performance snapshot for scoring.
type TrendSource interface {
	Collect(ctx context.Context) (*models.TrendData, error)
}

// Researcher looks up top-performing videos for a keyword. Failure is never
// fatal to the caller.
type Researcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error)
}

// PlanGenerator turns one selected keyword into a structured content plan.
type PlanGenerator interface {
	Generate(ctx context.Context, kw models.SelectedKeyword, trend *models.TrendData, research []models.ResearchResult) (*models.ContentPlan, error)
}

// BatchRecorder persists batch state. CreateRunning doubles as the
// exclusivity guard and must fail with storage.ErrBatchConflict when another
// batch holds the running status.
type BatchRecorder interface {
	CreateRunning(ctx context.Context, batch *models.AutoPlanBatch) error
	Update(ctx context.Context, batch *models.AutoPlanBatch) error
}

// PlanRecorder persists generated plans.
type PlanRecorder interface {
	Create(ctx context.Context, plan *models.ContentPlan) error
}

// Notifier delivers best-effort progress messages.
type Notifier interface {
	Send(ctx context.Context, message string) error
}
