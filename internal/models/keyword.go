package models

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is a candidate topic tracked for future content generation.
// Records are created externally (import or manual entry); the batch engine
// only reads them and bumps usage counters after a successful generation.
type Keyword struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Text       string     `json:"text" db:"text"`
	Volume     *int       `json:"volume,omitempty" db:"volume"`
	Difficulty *int       `json:"difficulty,omitempty" db:"difficulty"`
	UsageCount int        `json:"usage_count" db:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	Category   string     `json:"category,omitempty" db:"category"`
	Priority   int        `json:"priority" db:"priority"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// KeywordFilter narrows the eligible keyword pool for one batch run.
// Nil bounds and empty category lists mean "no constraint".
type KeywordFilter struct {
	IncludeCategories []string `json:"include_categories,omitempty"`
	ExcludeCategories []string `json:"exclude_categories,omitempty"`
	MinVolume         *int     `json:"min_volume,omitempty"`
	MaxUsageCount     *int     `json:"max_usage_count,omitempty"`
}

// Matches reports whether a keyword passes the filter. The repository applies
// the same constraints in SQL; the scorer re-checks them so selection stays
// correct regardless of where candidates came from.
func (f KeywordFilter) Matches(kw Keyword) bool {
	if !kw.IsActive {
		return false
	}
	if len(f.IncludeCategories) > 0 && !containsString(f.IncludeCategories, kw.Category) {
		return false
	}
	if len(f.ExcludeCategories) > 0 && containsString(f.ExcludeCategories, kw.Category) {
		return false
	}
	if f.MinVolume != nil && (kw.Volume == nil || *kw.Volume < *f.MinVolume) {
		return false
	}
	if f.MaxUsageCount != nil && kw.UsageCount > *f.MaxUsageCount {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
