// Package scheduler runs the periodic pending-booking retention sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/service"
)

const sweepTimeout = time.Minute

// Sweeper releases pending bookings older than the retention window.
type Sweeper interface {
	Sweep(ctx context.Context) (service.ReapResult, error)
}

// StartSweep schedules sweeper every interval, starting immediately.  Runs
// never overlap; a run still in progress when the next is due pushes it
// back.  The caller owns the returned scheduler and must Shutdown it.
func StartSweep(loc *time.Location, interval time.Duration, sweeper Sweeper, log *zap.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			if _, err := sweeper.Sweep(ctx); err != nil {
				log.Error("pending retention sweep failed", zap.Error(err))
			}
		}),
		gocron.WithName("pending-retention-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	s.Start()
	log.Info("pending retention sweep scheduled", zap.Duration("interval", interval))
	return s, nil
}
