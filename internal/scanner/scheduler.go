package scanner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler triggers a recurring scan of a fixed path. It owns the timer
// and merely invokes the orchestrator's Scan entry point; it holds none of
// the pipeline's state.
type Scheduler struct {
	orchestrator *Orchestrator
	path         string
	interval     time.Duration
	cron         *cron.Cron
}

// NewScheduler initializes a Scheduler that scans path every interval.
func NewScheduler(orchestrator *Orchestrator, path string, interval time.Duration) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		path:         path,
		interval:     interval,
		cron:         cron.New(),
	}
}

// Start schedules the recurring scan and starts the timer.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		logrus.WithField("path", s.path).Info("Scheduled scan starting")
		record, err := s.orchestrator.Scan(ctx, s.path)
		if err != nil {
			logrus.WithError(err).WithField("path", s.path).Error("Scheduled scan failed")
			return
		}
		logrus.WithFields(logrus.Fields{
			"path":   s.path,
			"status": record.Status,
		}).Info("Scheduled scan finished")
	}))
	s.cron.Start()
}

// Stop cancels the recurring trigger and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
