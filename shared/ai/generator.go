package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"planner-stack/internal/models"
	"planner-stack/shared/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// GenerationError classifies a failed generation attempt. Transient errors
// (rate limits, network blips, breaker open) are worth retrying; permanent
// ones (bad credentials, malformed request, unparseable payload) are not.
type GenerationError struct {
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("generation failed (%s): %v", kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retriable generation error.
func IsTransient(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Transient
}

// Generator drives the external text-generation service to turn one selected
// keyword into a structured content plan.
type Generator struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	hints           string
	breaker         *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

func NewGenerator(ctx context.Context, cfg *config.AIConfig) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Trip after a burst of consecutive failures so a dead upstream fails the
	// remaining items fast instead of burning the retry budget on each one.
	breaker := gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](gobreaker.Settings{
		Name:    "gemini",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Generator{
		client:          client,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		hints:           cfg.Hints,
		breaker:         breaker,
	}, nil
}

// Generate composes a single request from the keyword, the optional research
// results and the optional trend snapshot, submits it, and parses the response
// into a ContentPlan. Request formation is deterministic for identical inputs.
func (g *Generator) Generate(ctx context.Context, kw models.SelectedKeyword, trend *models.TrendData, research []models.ResearchResult) (*models.ContentPlan, error) {
	briefing := BuildBriefing(research)
	prompt := g.buildPrompt(kw, trend, briefing)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	var genCfg *genai.GenerateContentConfig
	if g.maxOutputTokens > 0 {
		genCfg = &genai.GenerateContentConfig{MaxOutputTokens: g.maxOutputTokens}
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	})
	if err != nil {
		return nil, classify(fmt.Errorf("keyword %q: %w", kw.Text, err))
	}

	responseText := result.Text()
	if responseText == "" {
		return nil, &GenerationError{Err: fmt.Errorf("empty response for keyword %q", kw.Text)}
	}

	plan, err := parsePlan(responseText)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("keyword %q: %w", kw.Text, err)}
	}

	plan.KeywordText = kw.Text
	plan.ResearchNote = briefing
	plan.Model = g.model
	plan.CreatedAt = time.Now()
	return plan, nil
}

// BuildBriefing formats research hits into the compact text block that is
// embedded in the prompt and kept on the plan record. Pure and deterministic.
func BuildBriefing(results []models.ResearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Top performing videos on this topic:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %q — %d views (%s)\n", i+1, r.Title, r.ViewCount, r.ChannelTitle)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Generator) buildPrompt(kw models.SelectedKeyword, trend *models.TrendData, briefing string) string {
	var b strings.Builder

	b.WriteString(`You are a content strategist that drafts video content plans for a channel.

INSTRUCTIONS:
1. Draft one complete content plan for the keyword below
2. The title must be specific and clickable, not generic
3. The outline must cover the topic start to finish in 4-8 sections
4. Write for viewers searching this exact keyword
`)

	fmt.Fprintf(&b, "\nKEYWORD: %s\n", kw.Text)
	if kw.Volume != nil {
		fmt.Fprintf(&b, "Estimated search volume: %d\n", *kw.Volume)
	}

	if briefing != "" {
		fmt.Fprintf(&b, "\nCOMPETITIVE RESEARCH:\n%s\n", briefing)
	}

	if titles := trend.TopTitles(8); len(titles) > 0 {
		b.WriteString("\nCURRENTLY TRENDING TITLES ON RELATED CHANNELS:\n")
		for _, title := range titles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if g.hints != "" {
		fmt.Fprintf(&b, "\nADDITIONAL GUIDANCE:\n%s\n", g.hints)
	}

	b.WriteString(`
Respond in the following JSON format:
{
  "title": "the video title",
  "hook": "a one-sentence opening hook",
  "outline": ["section 1", "section 2", "..."],
  "description": "a 2-3 sentence video description",
  "tags": ["tag1", "tag2"]
}`)

	return b.String()
}

// parsePlan extracts the first well-formed JSON payload from the response.
// The model sometimes wraps it in commentary or code fences; both are
// tolerated. No extractable payload is a permanent failure.
func parsePlan(response string) (*models.ContentPlan, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("no JSON found in response: %s", truncateString(response, 200))
	}
	jsonStr := response[startIdx : endIdx+1]

	var payload struct {
		Title       string   `json:"title"`
		Hook        string   `json:"hook"`
		Outline     []string `json:"outline"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		sanitized := sanitizeJSON(jsonStr)
		if sErr := json.Unmarshal([]byte(sanitized), &payload); sErr != nil {
			return nil, fmt.Errorf("failed to unmarshal plan JSON: %w (after sanitizing: %v)", err, sErr)
		}
		log.Printf("Warning: had to sanitize malformed plan JSON")
	}

	if strings.TrimSpace(payload.Title) == "" {
		return nil, fmt.Errorf("plan is missing a title")
	}
	if len(payload.Outline) == 0 {
		return nil, fmt.Errorf("plan %q has no outline", payload.Title)
	}

	return &models.ContentPlan{
		Title:       payload.Title,
		Hook:        payload.Hook,
		Outline:     payload.Outline,
		Description: payload.Description,
		Tags:        payload.Tags,
	}, nil
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// sanitizeJSON fixes the formatting mistakes models make most often: trailing
// commas and stray code fences inside the extracted window.
func sanitizeJSON(jsonStr string) string {
	s := strings.ReplaceAll(jsonStr, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// classify maps an upstream failure onto the transient/permanent taxonomy.
func classify(err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &GenerationError{Transient: true, Err: err}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &GenerationError{Transient: true, Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return &GenerationError{Transient: true, Err: err}
		case apiErr.Code >= 500:
			return &GenerationError{Transient: true, Err: err}
		case apiErr.Code >= 400:
			// Auth and malformed-request errors: retrying will not help.
			return &GenerationError{Transient: false, Err: err}
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"), strings.Contains(msg, "rate limit"):
		return &GenerationError{Transient: true, Err: err}
	case strings.Contains(msg, "UNAUTHENTICATED"), strings.Contains(msg, "PERMISSION_DENIED"),
		strings.Contains(msg, "API key"), strings.Contains(msg, "INVALID_ARGUMENT"):
		return &GenerationError{Transient: false, Err: err}
	}

	// Anything else is assumed to be a transport-level blip.
	return &GenerationError{Transient: true, Err: err}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
