// Package scheduler runs the periodic income sweep. It shares the accrual
// code path with the request handlers; it only decides when that path runs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"servertycoon/internal/engine"
)

type Scheduler struct {
	engine   *engine.Engine
	log      *logrus.Logger
	interval time.Duration
	cron     *cron.Cron
}

func New(eng *engine.Engine, log *logrus.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{engine: eng, log: log, interval: interval, cron: cron.New()}
}

// Start schedules the sweep and returns immediately.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("schedule income sweep: %w", err)
	}
	s.cron.Start()
	s.log.WithField("interval", s.interval.String()).Info("income sweep scheduled")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	start := time.Now()
	processed, failed := s.engine.SweepIncome(context.Background())
	s.log.WithFields(logrus.Fields{
		"processed": processed,
		"failed":    failed,
		"took":      time.Since(start).String(),
	}).Debug("income sweep finished")
}
