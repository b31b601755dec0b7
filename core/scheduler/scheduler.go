// Package scheduler drives periodic analysis cycles.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/chargescope/chargescope/core/logger"
	infralogger "github.com/chargescope/chargescope/infra/logger"
)

// Config defines the cycle cadence loaded from configuration.
type Config struct {
	IntervalMinutes int  `json:"interval_minutes"`
	RunOnStart      bool `json:"run_on_start"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 60
	}
}

// Validate checks the configured interval.
func (c Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval_minutes must be positive, got %d", c.IntervalMinutes)
	}
	return nil
}

// Runner is the unit of work the scheduler triggers each cycle.
type Runner func(ctx context.Context) error

// Scheduler invokes a Runner at a fixed interval until its context is
// canceled. A failing cycle is logged and the schedule continues.
type Scheduler struct {
	cfg Config
	run Runner
	log logger.Logger
}

// New validates the configuration and builds a Scheduler.
func New(cfg Config, run Runner, log logger.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	return &Scheduler{cfg: cfg, run: run, log: log}, nil
}

// Start blocks until ctx is canceled, running one cycle per interval.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
	s.log.Infof("scheduler started, interval %s", interval)

	if s.cfg.RunOnStart {
		s.cycle(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Infof("scheduler stopped: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	start := time.Now()
	if err := s.run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Errorf("analysis cycle failed after %s: %v", time.Since(start), err)
		return
	}
	s.log.Debugf("analysis cycle finished in %s", time.Since(start))
}
