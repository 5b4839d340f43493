package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"planner-stack/internal/models"
	"planner-stack/shared/ai"
	"planner-stack/shared/config"
)

// initialBackoff is the first retry delay for transient generation failures;
// it doubles on each subsequent retry.
const initialBackoff = 2 * time.Second

// Dependencies wires all collaborators into the coordinator.
type Dependencies struct {
	Keywords  KeywordSource
	Trends    TrendSource
	Research  Researcher
	Generator PlanGenerator
	Batches   BatchRecorder
	Plans     PlanRecorder
	Notifier  Notifier
}

// Coordinator drives one batch run end to end: trend collection, keyword
// selection, per-keyword generation with retry, outcome accounting and the
// batch state machine. It owns all mutations of the AutoPlanBatch record.
type Coordinator struct {
	deps   Dependencies
	scorer *Scorer
	cfg    config.BatchConfig
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewCoordinator(deps Dependencies, scorer *Scorer, cfg config.BatchConfig) *Coordinator {
	return &Coordinator{
		deps:   deps,
		scorer: scorer,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// sleepContext waits for d or until the context is done, whichever comes
// first, so a backoff never outlives the run budget.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes one batch. The returned batch is always the final record,
// terminal unless creation itself failed. The error is non-nil only for
// batch-fatal conditions (conflict, selection-phase failures); per-item
// failures land in the counters instead.
func (c *Coordinator) Run(ctx context.Context, trigger models.TriggerSource) (*models.AutoPlanBatch, error) {
	batch := &models.AutoPlanBatch{
		ID:          uuid.New(),
		TriggeredAt: c.now(),
		TriggeredBy: trigger,
		Status:      models.BatchStatusRunning,
		TargetCount: c.cfg.TargetCount,
	}

	// The conditional insert is the exclusivity guard: if another batch holds
	// running, this fails with storage.ErrBatchConflict and nothing changed.
	if err := c.deps.Batches.CreateRunning(ctx, batch); err != nil {
		return nil, err
	}

	log.Printf("Batch %s started (%s), targeting %d plans", batch.ID, trigger, batch.TargetCount)
	c.notify(ctx, fmt.Sprintf("Auto-plan batch started (%s), targeting %d plans", trigger, batch.TargetCount))

	runCtx := ctx
	cancel := func() {}
	if c.cfg.RunTimeoutMinutes > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.RunTimeoutMinutes)*time.Minute)
	}
	defer cancel()

	trend := c.collectTrend(runCtx, batch)

	filter := models.KeywordFilter{
		IncludeCategories: c.cfg.IncludeCategories,
		ExcludeCategories: c.cfg.ExcludeCategories,
		MinVolume:         c.cfg.MinVolume,
		MaxUsageCount:     c.cfg.MaxUsageCount,
	}
	candidates, err := c.deps.Keywords.ListEligible(runCtx, filter)
	if err != nil {
		return c.finalizeFatal(ctx, batch, fmt.Errorf("list eligible keywords: %w", err))
	}

	selected := c.scorer.Select(candidates, trend, SelectOptions{
		TargetCount: c.cfg.TargetCount,
		Filter:      filter,
	})
	batch.SelectedKeywords = selected
	batch.TotalPlans = len(selected)
	if len(selected) == 0 {
		return c.finalizeFatal(ctx, batch, errors.New("no eligible keywords"))
	}

	log.Printf("Selected %d of %d candidates", len(selected), len(candidates))
	if err := c.deps.Batches.Update(ctx, batch); err != nil {
		return c.finalizeFatal(ctx, batch, fmt.Errorf("persist keyword selection: %w", err))
	}

	// Fan out in score order with a bounded worker pool. g.Go blocks while
	// the pool is full, so higher-ranked keywords are always attempted first
	// and a budget cutoff hits the tail of the selection.
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.MaxConcurrent)

	for _, sel := range selected {
		sel := sel
		g.Go(func() error {
			res := c.processKeyword(runCtx, batch.ID, sel, trend)

			mu.Lock()
			if res.Error == "" {
				batch.CompletedPlans++
			} else {
				batch.FailedPlans++
			}
			if res.Note != "" {
				batch.ErrorLog = append(batch.ErrorLog, fmt.Sprintf("%s: %s", sel.Text, res.Note))
			}
			batch.Results = append(batch.Results, res)
			done := batch.CompletedPlans + batch.FailedPlans
			if err := c.deps.Batches.Update(ctx, batch); err != nil {
				log.Printf("Warning: failed to persist batch progress: %v", err)
			}
			mu.Unlock()

			c.notifyItem(ctx, sel, res, done, batch.TotalPlans)
			return nil
		})
	}
	_ = g.Wait()

	c.finalize(ctx, runCtx, batch)
	return batch, nil
}

// collectTrend is best-effort: a collection failure degrades to trend-less
// scoring with a note in the batch error log, it never aborts the run.
func (c *Coordinator) collectTrend(ctx context.Context, batch *models.AutoPlanBatch) *models.TrendData {
	if c.cfg.SkipTrendAnalysis {
		log.Printf("Trend analysis skipped by configuration")
		return nil
	}
	trend, err := c.deps.Trends.Collect(ctx)
	if err != nil {
		log.Printf("Proceeding without trend data: %v", err)
		batch.ErrorLog = append(batch.ErrorLog, fmt.Sprintf("trend collection failed: %v", err))
		return nil
	}
	batch.TrendData = trend
	return trend
}

// processKeyword runs the research lookup and the retried generation chain
// for one keyword. The returned result has an empty Error on success.
func (c *Coordinator) processKeyword(ctx context.Context, batchID uuid.UUID, sel models.SelectedKeyword, trend *models.TrendData) models.ItemResult {
	res := models.ItemResult{KeywordID: sel.KeywordID, Text: sel.Text}

	// The run budget expired while this item waited for a worker slot; it is
	// never started.
	if ctx.Err() != nil {
		res.Error = "run budget exhausted before attempt"
		return res
	}

	var research []models.ResearchResult
	if !c.cfg.SkipResearch && c.deps.Research != nil {
		r, err := c.deps.Research.Search(ctx, sel.Text, c.cfg.ResearchLimit)
		if err != nil {
			log.Printf("Research unavailable for %q, generating without briefing: %v", sel.Text, err)
			res.Note = fmt.Sprintf("research unavailable: %v", err)
		} else {
			research = r
		}
	}

	backoff := initialBackoff
	for {
		res.Attempts++
		plan, err := c.deps.Generator.Generate(ctx, sel, trend, research)
		if err == nil {
			if plan.ID == uuid.Nil {
				plan.ID = uuid.New()
			}
			plan.BatchID = batchID
			plan.KeywordID = sel.KeywordID
			if plan.KeywordText == "" {
				plan.KeywordText = sel.Text
			}
			if err := c.deps.Plans.Create(ctx, plan); err != nil {
				// Nothing durable was produced for this keyword, so the item
				// is a failure and usage stays untouched.
				res.Error = fmt.Sprintf("store plan: %v", err)
				return res
			}
			if err := c.deps.Keywords.RecordUsage(ctx, sel.KeywordID); err != nil {
				log.Printf("Warning: failed to record usage for %q: %v", sel.Text, err)
				res.Note = joinNotes(res.Note, fmt.Sprintf("usage not recorded: %v", err))
			}
			res.PlanID = &plan.ID
			log.Printf("Generated plan %q for keyword %q (attempt %d)", plan.Title, sel.Text, res.Attempts)
			return res
		}

		if !ai.IsTransient(err) || res.Attempts > c.cfg.MaxRetries {
			res.Error = err.Error()
			return res
		}

		log.Printf("Transient failure for %q (attempt %d), retrying in %v: %v", sel.Text, res.Attempts, backoff, err)
		if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
			res.Error = fmt.Sprintf("run budget exhausted after %d attempts: %v", res.Attempts, err)
			return res
		}
		backoff *= 2
	}
}

// finalize assigns the terminal status exactly once and always emits the
// completion notification. A run whose budget expired before any plan
// completed ends failed, not partial.
func (c *Coordinator) finalize(ctx, runCtx context.Context, batch *models.AutoPlanBatch) {
	batch.Status = batch.DeriveStatus()
	if batch.CompletedPlans == 0 && batch.Status == models.BatchStatusPartial && runCtx.Err() != nil {
		batch.Status = models.BatchStatusFailed
		batch.Error = fmt.Sprintf("run budget exhausted with %d of %d plans unfinished", batch.FailedPlans, batch.TotalPlans)
	}
	now := c.now()
	batch.CompletedAt = &now

	if err := c.deps.Batches.Update(ctx, batch); err != nil {
		log.Printf("Warning: failed to persist final batch state: %v", err)
	}

	summary := fmt.Sprintf("Auto-plan batch %s: %d/%d plans completed, %d failed",
		batch.Status, batch.CompletedPlans, batch.TotalPlans, batch.FailedPlans)
	c.notify(ctx, summary)
	log.Printf("Batch %s finished with status %s (%d completed, %d failed)",
		batch.ID, batch.Status, batch.CompletedPlans, batch.FailedPlans)
}

// finalizeFatal aborts the run before any generation attempt. The batch ends
// failed with the cause recorded, and the completion notification still fires.
func (c *Coordinator) finalizeFatal(ctx context.Context, batch *models.AutoPlanBatch, cause error) (*models.AutoPlanBatch, error) {
	batch.Status = models.BatchStatusFailed
	batch.Error = cause.Error()
	now := c.now()
	batch.CompletedAt = &now

	if err := c.deps.Batches.Update(ctx, batch); err != nil {
		log.Printf("Warning: failed to persist failed batch state: %v", err)
	}

	c.notify(ctx, fmt.Sprintf("Auto-plan batch failed: %v", cause))
	log.Printf("Batch %s failed before generation: %v", batch.ID, cause)
	return batch, cause
}

func (c *Coordinator) notifyItem(ctx context.Context, sel models.SelectedKeyword, res models.ItemResult, done, total int) {
	if res.Error == "" {
		c.notify(ctx, fmt.Sprintf("Plan %d/%d ready: %q", done, total, sel.Text))
	} else {
		c.notify(ctx, fmt.Sprintf("Plan %d/%d failed: %q (%s)", done, total, sel.Text, res.Error))
	}
}

// notify is best-effort; failures are logged and swallowed.
func (c *Coordinator) notify(ctx context.Context, message string) {
	if c.deps.Notifier == nil {
		return
	}
	if err := c.deps.Notifier.Send(ctx, message); err != nil {
		log.Printf("Warning: notification failed: %v", err)
	}
}

func joinNotes(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
