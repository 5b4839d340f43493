package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the lifecycle state of one orchestration run. Terminal
// statuses are assigned exactly once; a batch never re-enters running.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusPartial   BatchStatus = "partial"
	BatchStatusFailed    BatchStatus = "failed"
)

// TriggerSource records what started a batch.
type TriggerSource string

const (
	TriggerScheduled TriggerSource = "scheduled"
	TriggerManual    TriggerSource = "manual"
)

// SelectedKeyword is the scorer's decision record for one keyword in a run.
// It is created during selection and never mutated afterwards.
type SelectedKeyword struct {
	KeywordID uuid.UUID `json:"keyword_id"`
	Text      string    `json:"text"`
	Volume    *int      `json:"volume,omitempty"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
}

// ItemResult is the outcome of one generation attempt chain. Error is empty
// on success. Note carries non-fatal degradations (research unavailable,
// usage recording failed) that belong in the batch error log.
type ItemResult struct {
	KeywordID uuid.UUID  `json:"keyword_id"`
	Text      string     `json:"text"`
	PlanID    *uuid.UUID `json:"plan_id,omitempty"`
	Attempts  int        `json:"attempts"`
	Error     string     `json:"error,omitempty"`
	Note      string     `json:"note,omitempty"`
}

// AutoPlanBatch is the unit-of-work record for one orchestration run. Only
// the coordinator mutates it; once a terminal status is set it is immutable.
type AutoPlanBatch struct {
	ID               uuid.UUID         `json:"id"`
	TriggeredAt      time.Time         `json:"triggered_at"`
	TriggeredBy      TriggerSource     `json:"triggered_by"`
	Status           BatchStatus       `json:"status"`
	TargetCount      int               `json:"target_count"`
	TotalPlans       int               `json:"total_plans"`
	CompletedPlans   int               `json:"completed_plans"`
	FailedPlans      int               `json:"failed_plans"`
	TrendData        *TrendData        `json:"trend_data,omitempty"`
	SelectedKeywords []SelectedKeyword `json:"selected_keywords,omitempty"`
	Results          []ItemResult      `json:"results,omitempty"`
	ErrorLog         []string          `json:"error_log,omitempty"`
	Error            string            `json:"error,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// Terminal reports whether the batch has reached an absorbing state.
func (b *AutoPlanBatch) Terminal() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusPartial || b.Status == BatchStatusFailed
}

// DeriveStatus computes the terminal status from the counters, for a run that
// was not aborted by a fatal error. Callers set BatchStatusFailed directly on
// fatal aborts and when nothing was selected.
func (b *AutoPlanBatch) DeriveStatus() BatchStatus {
	switch {
	case b.TotalPlans == 0:
		return BatchStatusFailed
	case b.FailedPlans == 0:
		return BatchStatusCompleted
	default:
		return BatchStatusPartial
	}
}
