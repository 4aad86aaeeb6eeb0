package core

import (
	"context"
	"time"
)

// Scheduler drives the scanner on a fixed-delay loop: the wait between two
// passes starts when the previous pass finished, so a slow pass never
// causes overlapping scans.
type Scheduler struct {
	scanner      *Scanner
	logger       Logger
	clock        Clock
	initialDelay time.Duration
	fixedDelay   time.Duration
}

func NewScheduler(scanner *Scanner, logger Logger, clock Clock, initialDelay, fixedDelay time.Duration) *Scheduler {
	return &Scheduler{
		scanner:      scanner,
		logger:       logger,
		clock:        clock,
		initialDelay: initialDelay,
		fixedDelay:   fixedDelay,
	}
}

// Run blocks until the context is cancelled or a scan pass fails to load
// its inputs. Scan failures are fatal: without configs and runs the
// watchdog is blind, and it is better to die loudly than to idle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Noticef("starting scheduler, initial delay %s", s.initialDelay)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.initialDelay):
	}

	for {
		if err := s.scanner.Scan(ctx); err != nil {
			s.logger.Criticalf("timeout scan failed: %v", err)
			return err
		}
		s.logger.Debugf("scan pass complete, next in %s", s.fixedDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.fixedDelay):
		}
	}
}
