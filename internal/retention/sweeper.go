package retention

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 2 * time.Minute

// HistorySweeper deletes resolved alarms past the retention window.
type HistorySweeper interface {
	SweepHistory(ctx context.Context) (int64, error)
}

// Sweeper runs the retention sweep on a cron schedule.
type Sweeper struct {
	sweeper HistorySweeper
	logger  *log.Logger
	cron    *cron.Cron
}

// NewSweeper constructs a sweeper with a standard 5-field cron schedule.
func NewSweeper(sweeper HistorySweeper, schedule string, logger *log.Logger) (*Sweeper, error) {
	if sweeper == nil {
		return nil, errors.New("retention: nil sweeper")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, err
	}

	s := &Sweeper{sweeper: sweeper, logger: logger, cron: cron.New()}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduled sweeps.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.sweeper.SweepHistory(ctx); err != nil && s.logger != nil {
		s.logger.Printf("scheduled retention sweep failed: %v", err)
	}
}
