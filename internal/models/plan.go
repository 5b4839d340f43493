package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentPlan is the structured draft produced by one successful generation.
type ContentPlan struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BatchID      uuid.UUID `json:"batch_id" db:"batch_id"`
	KeywordID    uuid.UUID `json:"keyword_id" db:"keyword_id"`
	KeywordText  string    `json:"keyword_text" db:"keyword_text"`
	Title        string    `json:"title" db:"title"`
	Hook         string    `json:"hook,omitempty" db:"hook"`
	Outline      []string  `json:"outline" db:"outline"`
	Description  string    `json:"description,omitempty" db:"description"`
	Tags         []string  `json:"tags,omitempty" db:"tags"`
	ResearchNote string    `json:"research_note,omitempty" db:"research_note"`
	Model        string    `json:"model,omitempty" db:"model"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
