package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReapResult reports one reap pass.  Dates lists every date that lost at
// least one hold.
type ReapResult struct {
	Released int64     `json:"released"`
	Cutoff   time.Time `json:"cutoff"`
	Date     string    `json:"date,omitempty"`
	Dates    []string  `json:"dates,omitempty"`
}

// Reaper releases pending bookings whose hold has run out.  There are no
// per-hold timers: holds are expired lazily by the readers that care
// (availability, reservation) and by a periodic retention sweep.  Each
// date that loses a hold gets a change signal.
type Reaper struct {
	bookings  BookingStore
	changes   ChangePublisher
	hold      time.Duration
	retention time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewReaper returns a reaper using hold for request-time reaps and
// retention for the periodic sweep.  changes may be nil.
func NewReaper(bookings BookingStore, changes ChangePublisher, hold, retention time.Duration, now func() time.Time, log *zap.Logger) *Reaper {
	return &Reaper{bookings: bookings, changes: changes, hold: hold, retention: retention, now: now, log: log}
}

// Hold returns the configured hold window.
func (r *Reaper) Hold() time.Duration { return r.hold }

// Reap cancels pending bookings created more than the hold window ago.  An
// empty date reaps every date.  A booking created at T is kept at T+hold
// and released at any instant after it.
func (r *Reaper) Reap(ctx context.Context, date string) (ReapResult, error) {
	res, err := r.expire(ctx, r.now().Add(-r.hold), date)
	if err != nil {
		return ReapResult{}, err
	}
	if res.Released > 0 {
		r.log.Info("stale holds released", zap.Int64("count", res.Released), zap.String("date", date), zap.Strings("dates", res.Dates), zap.Time("cutoff", res.Cutoff))
	}
	return res, nil
}

// Sweep cancels pending bookings older than the retention window on every
// date.  It catches holds on dates nobody has looked at.
func (r *Reaper) Sweep(ctx context.Context) (ReapResult, error) {
	res, err := r.expire(ctx, r.now().Add(-r.retention), "")
	if err != nil {
		return ReapResult{}, err
	}
	r.log.Info("pending retention sweep", zap.Int64("count", res.Released), zap.Strings("dates", res.Dates), zap.Time("cutoff", res.Cutoff))
	return res, nil
}

func (r *Reaper) expire(ctx context.Context, cutoff time.Time, date string) (ReapResult, error) {
	n, dates, err := r.bookings.ExpirePending(ctx, cutoff, date)
	if err != nil {
		return ReapResult{}, err
	}
	for _, d := range dates {
		publishChange(ctx, r.changes, r.log, d)
	}
	return ReapResult{Released: n, Cutoff: cutoff, Date: date, Dates: dates}, nil
}

// reapBestEffort runs Reap and only logs failures.
func (r *Reaper) reapBestEffort(ctx context.Context, date string) {
	if _, err := r.Reap(ctx, date); err != nil {
		r.log.Warn("hold reap failed", zap.String("date", date), zap.Error(err))
	}
}
