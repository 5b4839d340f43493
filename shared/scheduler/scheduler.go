package scheduler

import (
	"context"
	"fmt"
	"log"

	"planner-stack/shared/config"
	"planner-stack/shared/monitoring"

	"github.com/robfig/cron/v3"
)

// Agent defines the interface that all agents must implement.
type Agent interface {
	Name() string
	Initialize() error
	RunOnce(ctx context.Context) error
}

// Scheduler manages the execution of an agent on a cron schedule.
type Scheduler struct {
	config  *config.Config
	monitor *monitoring.Monitor
	agent   Agent
	cron    *cron.Cron
}

func New(cfg *config.Config, agent Agent, monitor *monitoring.Monitor) *Scheduler {
	return &Scheduler{
		config:  cfg,
		monitor: monitor,
		agent:   agent,
		// Prevent overlapping runs; the store-level exclusivity guard is the
		// backstop, this avoids even attempting the conflict.
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.agent.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	healthServer := monitoring.NewHealthServer(s.monitor, s.config.Monitoring.HealthPort)
	healthServer.Start()

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("Error running scheduled job for %s: %v", s.agent.Name(), err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	log.Printf("Scheduler started for %s with schedule: %s", s.agent.Name(), s.config.Schedule)
	s.cron.Start()

	<-ctx.Done()
	log.Printf("Scheduler stopped for %s", s.agent.Name())
	s.cron.Stop()
	return ctx.Err()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	log.Printf("Starting %s run...", s.agent.Name())
	if err := s.agent.RunOnce(ctx); err != nil {
		return fmt.Errorf("%s run failed: %w", s.agent.Name(), err)
	}
	return nil
}
