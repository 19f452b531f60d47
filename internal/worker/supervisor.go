package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Supervisor runs one worker loop per job type concurrently. A loop
// returning an error means the scheduling machinery itself broke (job
// failures are absorbed inside the loop), so the whole group is torn
// down and the process exits rather than degrading silently.
type Supervisor struct {
	loops  []*Loop
	logger *slog.Logger
}

// NewSupervisor creates a supervisor over the given loops.
func NewSupervisor(logger *slog.Logger, loops ...*Loop) *Supervisor {
	return &Supervisor{loops: loops, logger: logger}
}

// Run blocks until ctx is cancelled and every loop drained its in-flight
// job, or until any loop fails.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("Supervisor starting worker loops", slog.Int("loops", len(s.loops)))

	g, ctx := errgroup.WithContext(ctx)
	for _, loop := range s.loops {
		loop := loop
		g.Go(func() error {
			return loop.Run(ctx)
		})
	}

	err := g.Wait()
	if err != nil {
		s.logger.Error("Worker loop terminated abnormally", slog.Any("error", err))
		return err
	}

	s.logger.Info("All worker loops stopped")
	return nil
}
