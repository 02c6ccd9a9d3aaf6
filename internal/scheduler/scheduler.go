package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/harvest"
)

// Scheduler runs the harvest cycle on a cron spec. The orchestrator's
// in-flight guard makes an overlapping tick a no-op.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *harvest.Orchestrator
}

func New(spec string, o *harvest.Orchestrator) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, orchestrator: o}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// Delay the first cycle so startup reads are served from whatever the
	// store already holds instead of competing with a fetch storm.
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() { go s.runOnce() })
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	if err := s.orchestrator.Run(context.Background()); err != nil {
		if errors.Is(err, harvest.ErrInProgress) {
			log.Warn("scheduler: previous harvest still running, skipping tick")
			return
		}
		log.Errorf("scheduler: harvest cycle: %v", err)
	}
}
