package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"planner-stack/internal/models"
	"planner-stack/shared/config"
)

// recencyHorizonDays is the window over which a used keyword regains its full
// recency factor. A keyword last used this many days ago (or never) scores as
// fully rested.
const recencyHorizonDays = 30.0

// Weights are the named coefficients of the selection formula. Volume,
// Difficulty, Recency and Trend multiply normalized [0,1] factors; Priority
// multiplies the raw integer boost on the keyword.
type Weights struct {
	Volume     float64
	Difficulty float64
	Recency    float64
	Priority   float64
	Trend      float64
}

func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	return Weights{
		Volume:     cfg.VolumeWeight,
		Difficulty: cfg.DifficultyWeight,
		Recency:    cfg.RecencyWeight,
		Priority:   cfg.PriorityWeight,
		Trend:      cfg.TrendWeight,
	}
}

// SelectOptions bound one selection pass.
type SelectOptions struct {
	TargetCount int
	Filter      models.KeywordFilter
}

// Scorer ranks eligible keywords and picks the top N for a run. Scoring is
// deterministic: identical candidates, trend data and options always produce
// the same ordered selection.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights, now: time.Now}
}

type scoredKeyword struct {
	selected   models.SelectedKeyword
	usageCount int
	lastUsedAt *time.Time
}

// Select filters, scores and orders candidates, returning at most
// opts.TargetCount selections in descending score order. Fewer eligible
// keywords than requested is not an error; zero eligible yields an empty
// result and the coordinator decides what that means for the batch.
func (s *Scorer) Select(candidates []models.Keyword, trend *models.TrendData, opts SelectOptions) []models.SelectedKeyword {
	if opts.TargetCount <= 0 {
		return nil
	}

	var eligible []models.Keyword
	maxVolume := 0
	for _, kw := range candidates {
		if !opts.Filter.Matches(kw) {
			continue
		}
		eligible = append(eligible, kw)
		if kw.Volume != nil && *kw.Volume > maxVolume {
			maxVolume = *kw.Volume
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	trendTokens := trendTokenSet(trend)
	now := s.now()

	scored := make([]scoredKeyword, 0, len(eligible))
	for _, kw := range eligible {
		score, reason := s.score(kw, maxVolume, trendTokens, now)
		sel := models.SelectedKeyword{
			KeywordID: kw.ID,
			Text:      kw.Text,
			Score:     score,
			Reason:    reason,
		}
		if kw.Volume != nil {
			v := *kw.Volume
			sel.Volume = &v
		}
		scored = append(scored, scoredKeyword{
			selected:   sel,
			usageCount: kw.UsageCount,
			lastUsedAt: kw.LastUsedAt,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.selected.Score != b.selected.Score {
			return a.selected.Score > b.selected.Score
		}
		if a.usageCount != b.usageCount {
			return a.usageCount < b.usageCount
		}
		// Never-used keywords outrank long-ago-used ones.
		switch {
		case a.lastUsedAt == nil && b.lastUsedAt != nil:
			return true
		case a.lastUsedAt != nil && b.lastUsedAt == nil:
			return false
		case a.lastUsedAt != nil && b.lastUsedAt != nil && !a.lastUsedAt.Equal(*b.lastUsedAt):
			return a.lastUsedAt.Before(*b.lastUsedAt)
		}
		return a.selected.KeywordID.String() < b.selected.KeywordID.String()
	})

	if len(scored) > opts.TargetCount {
		scored = scored[:opts.TargetCount]
	}

	result := make([]models.SelectedKeyword, len(scored))
	for i, sk := range scored {
		result[i] = sk.selected
	}
	return result
}

func (s *Scorer) score(kw models.Keyword, maxVolume int, trendTokens map[string]bool, now time.Time) (float64, string) {
	var reasons []string

	// Missing metrics score neutral rather than punishing keywords that were
	// imported without volume or difficulty estimates.
	volumeFactor := 0.5
	if kw.Volume != nil {
		if maxVolume > 0 {
			volumeFactor = float64(*kw.Volume) / float64(maxVolume)
		} else {
			volumeFactor = 0
		}
		reasons = append(reasons, fmt.Sprintf("search volume %d", *kw.Volume))
	}

	difficultyFactor := 0.5
	if kw.Difficulty != nil {
		d := *kw.Difficulty
		if d < 0 {
			d = 0
		} else if d > 100 {
			d = 100
		}
		difficultyFactor = 1 - float64(d)/100
		if difficultyFactor >= 0.5 {
			reasons = append(reasons, fmt.Sprintf("low difficulty %d", d))
		}
	}

	staleness := 1.0
	if kw.LastUsedAt != nil {
		days := now.Sub(*kw.LastUsedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		staleness = days / recencyHorizonDays
		if staleness > 1 {
			staleness = 1
		}
	}
	recencyFactor := staleness / float64(1+kw.UsageCount)
	if kw.UsageCount == 0 {
		reasons = append(reasons, "never used")
	} else {
		reasons = append(reasons, fmt.Sprintf("used %d times", kw.UsageCount))
	}

	trendFactor := 0.0
	if len(trendTokens) > 0 {
		tokens := tokenize(kw.Text)
		if len(tokens) > 0 {
			matched := 0
			for _, tok := range tokens {
				if trendTokens[tok] {
					matched++
				}
			}
			trendFactor = float64(matched) / float64(len(tokens))
			if matched > 0 {
				reasons = append(reasons, fmt.Sprintf("matches %d trending terms", matched))
			}
		}
	}

	if kw.Priority != 0 {
		reasons = append(reasons, fmt.Sprintf("priority boost %+d", kw.Priority))
	}

	score := s.weights.Volume*volumeFactor +
		s.weights.Difficulty*difficultyFactor +
		s.weights.Recency*recencyFactor +
		s.weights.Priority*float64(kw.Priority) +
		s.weights.Trend*trendFactor

	return score, strings.Join(reasons, ", ")
}

// trendTokenSet collapses all snapshot titles into a token set for overlap
// scoring. Nil trend data yields an empty set and a zero trend factor.
func trendTokenSet(trend *models.TrendData) map[string]bool {
	if trend == nil {
		return nil
	}
	set := make(map[string]bool)
	for _, v := range trend.OwnVideos {
		for _, tok := range tokenize(v.Title) {
			set[tok] = true
		}
	}
	for _, c := range trend.Competitors {
		for _, v := range c.Videos {
			for _, tok := range tokenize(v.Title) {
				set[tok] = true
			}
		}
	}
	return set
}

// tokenize lowercases and splits on non-alphanumerics, dropping tokens too
// short to carry topical meaning.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
