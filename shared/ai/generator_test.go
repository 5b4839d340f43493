package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"planner-stack/internal/models"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		title    string
		sections int
	}{
		{
			name:     "clean JSON",
			response: `{"title": "Go Generics in 10 Minutes", "hook": "Stop copy-pasting code.", "outline": ["intro", "type parameters", "constraints"], "description": "A quick tour.", "tags": ["go", "generics"]}`,
			title:    "Go Generics in 10 Minutes",
			sections: 3,
		},
		{
			name: "commentary around the payload",
			response: `Sure, here is a plan for that keyword:
{"title": "Docker Networking Explained", "outline": ["bridge", "overlay"]}
Let me know if you want changes.`,
			title:    "Docker Networking Explained",
			sections: 2,
		},
		{
			name: "code fences",
			response: "```json\n" + `{"title": "Postgres Indexes", "outline": ["btree", "gin", "brin"]}` + "\n```",
			title:    "Postgres Indexes",
			sections: 3,
		},
		{
			name:     "trailing commas sanitized",
			response: `{"title": "Terraform State", "outline": ["local", "remote",], "tags": ["iac",]}`,
			title:    "Terraform State",
			sections: 2,
		},
		{
			name:     "no JSON at all",
			response: "I cannot help with that.",
			wantErr:  true,
		},
		{
			name:     "missing title",
			response: `{"outline": ["one", "two"]}`,
			wantErr:  true,
		},
		{
			name:     "empty outline",
			response: `{"title": "Empty Plan", "outline": []}`,
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := parsePlan(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsePlan() succeeded with %q, want error", plan.Title)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePlan() error = %v", err)
			}
			if plan.Title != tt.title {
				t.Errorf("Title = %q, want %q", plan.Title, tt.title)
			}
			if len(plan.Outline) != tt.sections {
				t.Errorf("Outline has %d sections, want %d", len(plan.Outline), tt.sections)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"breaker open", gobreaker.ErrOpenState, true},
		{"breaker half-open throttle", gobreaker.ErrTooManyRequests, true},
		{"rate limited", genai.APIError{Code: 429, Message: "quota"}, true},
		{"server error", genai.APIError{Code: 500, Message: "internal"}, true},
		{"service unavailable", genai.APIError{Code: 503, Message: "overloaded"}, true},
		{"bad request", genai.APIError{Code: 400, Message: "malformed"}, false},
		{"unauthorized", genai.APIError{Code: 401, Message: "bad key"}, false},
		{"forbidden", genai.APIError{Code: 403, Message: "denied"}, false},
		{"resource exhausted by message", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"bad key by message", errors.New("API key not valid"), false},
		{"invalid argument by message", errors.New("INVALID_ARGUMENT: contents required"), false},
		{"unknown transport blip", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genErr := classify(fmt.Errorf("keyword %q: %w", "test keyword", tt.err))
			if genErr.Transient != tt.wantTransient {
				t.Errorf("classify(%v).Transient = %v, want %v", tt.err, genErr.Transient, tt.wantTransient)
			}
			if !IsTransient(genErr) && tt.wantTransient {
				t.Error("IsTransient disagrees with classification")
			}
		})
	}
}

func TestIsTransientOnForeignError(t *testing.T) {
	if IsTransient(errors.New("not a generation error")) {
		t.Error("IsTransient() = true for an unclassified error")
	}
	wrapped := fmt.Errorf("attempt 2: %w", &GenerationError{Transient: true, Err: errors.New("blip")})
	if !IsTransient(wrapped) {
		t.Error("IsTransient() = false for a wrapped transient error")
	}
}

func TestBuildBriefing(t *testing.T) {
	if got := BuildBriefing(nil); got != "" {
		t.Errorf("BuildBriefing(nil) = %q, want empty", got)
	}

	results := []models.ResearchResult{
		{Title: "Kubernetes Crash Course", ChannelTitle: "DevOps Weekly", ViewCount: 120000},
		{Title: "K8s in Production", ChannelTitle: "Cloud Talks", ViewCount: 45000},
	}
	got := BuildBriefing(results)
	want := "Top performing videos on this topic:\n" +
		`1. "Kubernetes Crash Course" — 120000 views (DevOps Weekly)` + "\n" +
		`2. "K8s in Production" — 45000 views (Cloud Talks)`
	if got != want {
		t.Errorf("BuildBriefing() =\n%s\nwant:\n%s", got, want)
	}

	if again := BuildBriefing(results); again != got {
		t.Error("BuildBriefing() is not deterministic")
	}
}

func TestBuildPrompt(t *testing.T) {
	g := &Generator{model: "gemini-test", hints: "Focus on beginners."}
	kw := models.SelectedKeyword{Text: "redis caching patterns"}
	vol := 900
	kw.Volume = &vol

	trend := &models.TrendData{
		OwnVideos: []models.TrendVideo{{Title: "Why Your Cache Is Lying", ViewCount: 9000}},
	}
	briefing := BuildBriefing([]models.ResearchResult{
		{Title: "Redis Explained", ChannelTitle: "Systems Channel", ViewCount: 80000},
	})

	prompt := g.buildPrompt(kw, trend, briefing)

	for _, want := range []string{
		"KEYWORD: redis caching patterns",
		"Estimated search volume: 900",
		"COMPETITIVE RESEARCH:",
		"Redis Explained",
		"CURRENTLY TRENDING TITLES",
		"Why Your Cache Is Lying",
		"ADDITIONAL GUIDANCE:",
		"Focus on beginners.",
		`"outline"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if again := g.buildPrompt(kw, trend, briefing); again != prompt {
		t.Error("buildPrompt() is not deterministic")
	}

	// Optional sections disappear cleanly when their inputs are absent.
	bare := g.buildPrompt(models.SelectedKeyword{Text: "bare keyword"}, nil, "")
	for _, unwanted := range []string{"COMPETITIVE RESEARCH", "CURRENTLY TRENDING", "Estimated search volume"} {
		if strings.Contains(bare, unwanted) {
			t.Errorf("bare prompt unexpectedly contains %q", unwanted)
		}
	}
}

func TestSanitizeJSON(t *testing.T) {
	in := "```json\n{\"tags\": [\"a\", \"b\",], \"title\": \"x\",}\n```"
	got := sanitizeJSON(in)
	if strings.Contains(got, "```") {
		t.Errorf("sanitizeJSON() left code fences: %q", got)
	}
	if strings.Contains(got, ",]") || strings.Contains(got, ",}") {
		t.Errorf("sanitizeJSON() left trailing commas: %q", got)
	}
}
