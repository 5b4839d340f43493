package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"planner-stack/internal/models"
	"planner-stack/shared/ai"
	"planner-stack/shared/config"
	"planner-stack/shared/monitoring"
	"planner-stack/shared/notify"
	"planner-stack/shared/storage"
	"planner-stack/shared/trends"
)

// Agent implements the scheduler.Agent interface around the coordinator,
// wiring the real collaborators from configuration.
type Agent struct {
	config      *config.Config
	monitor     *monitoring.Monitor
	pool        *pgxpool.Pool
	coordinator *Coordinator
}

func NewAgent(cfg *config.Config, monitor *monitoring.Monitor) *Agent {
	return &Agent{
		config:  cfg,
		monitor: monitor,
	}
}

func (a *Agent) Name() string {
	return "Auto Plan Batch"
}

func (a *Agent) Initialize() error {
	if a.coordinator != nil {
		return nil
	}
	log.Printf("Initializing %s...", a.Name())
	ctx := context.Background()

	pool, err := storage.Connect(ctx, a.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	log.Println("Database connected")

	trendsClient, err := trends.NewClient(ctx, &a.config.YouTube)
	if err != nil {
		return fmt.Errorf("failed to create trends client: %w", err)
	}
	log.Println("Trends client initialized")

	generator, err := ai.NewGenerator(ctx, &a.config.AI)
	if err != nil {
		return fmt.Errorf("failed to create plan generator: %w", err)
	}
	log.Println("Plan generator initialized")

	var notifier Notifier
	if a.config.NotificationsEnabled() {
		notifier = notify.NewTelegram(&a.config.Telegram)
		log.Println("Telegram notifier initialized")
	} else {
		log.Println("Telegram not configured, notifications disabled")
	}

	deps := Dependencies{
		Keywords:  storage.NewKeywordRepository(pool),
		Trends:    trendsClient,
		Research:  trendsClient,
		Generator: generator,
		Batches:   storage.NewBatchStore(pool),
		Plans:     storage.NewPlanStore(pool),
		Notifier:  notifier,
	}
	a.coordinator = NewCoordinator(deps, NewScorer(WeightsFromConfig(a.config.Scoring)), a.config.Batch)
	return nil
}

// RunOnce is the scheduler entry point.
func (a *Agent) RunOnce(ctx context.Context) error {
	return a.run(ctx, models.TriggerScheduled)
}

// RunManual runs one batch outside the schedule (the --once CLI mode).
func (a *Agent) RunManual(ctx context.Context) error {
	return a.run(ctx, models.TriggerManual)
}

func (a *Agent) run(ctx context.Context, trigger models.TriggerSource) error {
	startTime := time.Now()

	batch, err := a.coordinator.Run(ctx, trigger)
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, storage.ErrBatchConflict) {
			// Another run holds the pool; its state is untouched and this
			// trigger is rejected without flipping health.
			log.Printf("Run rejected: %v", err)
			return err
		}
		a.monitor.RecordCriticalFailure(err, duration)
		return err
	}

	summary := fmt.Sprintf("%d/%d plans completed, %d failed",
		batch.CompletedPlans, batch.TotalPlans, batch.FailedPlans)

	switch batch.Status {
	case models.BatchStatusCompleted:
		a.monitor.RecordSuccess(summary, duration)
	case models.BatchStatusPartial:
		a.monitor.RecordPartialFailure(summary, duration)
	default:
		a.monitor.RecordCriticalFailure(fmt.Errorf("batch ended %s: %s", batch.Status, batch.Error), duration)
	}
	return nil
}

// Close releases the database pool.
func (a *Agent) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
