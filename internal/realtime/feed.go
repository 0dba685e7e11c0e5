// Package realtime fans out "the bookings of this date changed" signals to
// live availability viewers.  Signals carry no payload; subscribers re-read
// availability when one arrives, and bursts coalesce into one wakeup.
package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Feed publishes and subscribes to per-date change signals.
type Feed interface {
	Publish(ctx context.Context, date string) error
	// Subscribe returns a channel that receives a value after each change
	// to date.  The channel is closed once ctx is done.
	Subscribe(ctx context.Context, date string) (<-chan struct{}, error)
}

// Channel returns the pub/sub channel name for a date.
func Channel(date string) string { return "bookings:" + date }

// RedisFeed carries signals over Redis pub/sub so every instance behind a
// load balancer sees changes made by any other.
type RedisFeed struct {
	rdb *redis.Client
}

// NewRedisFeed returns a feed bound to rdb.
func NewRedisFeed(rdb *redis.Client) *RedisFeed { return &RedisFeed{rdb: rdb} }

func (f *RedisFeed) Publish(ctx context.Context, date string) error {
	return f.rdb.Publish(ctx, Channel(date), date).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, date string) (<-chan struct{}, error) {
	ps := f.rdb.Subscribe(ctx, Channel(date))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				notify(out)
			}
		}
	}()
	return out, nil
}

// LocalFeed is an in-process feed used when Redis is unavailable.  It only
// reaches viewers connected to the same instance.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewLocalFeed returns an empty in-process feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[chan struct{}]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[date] {
		notify(ch)
	}
	return nil
}

func (f *LocalFeed) Subscribe(ctx context.Context, date string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	if f.subs[date] == nil {
		f.subs[date] = make(map[chan struct{}]struct{})
	}
	f.subs[date][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[date], ch)
		if len(f.subs[date]) == 0 {
			delete(f.subs, date)
		}
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// notify performs a non-blocking send; a pending signal already covers
// this change.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
