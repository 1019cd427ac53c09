package store

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// BackpressureGate is a small hysteresis state machine sampled on a
// schedule rather than on every request, so the ingest hot path never
// pays for pool-saturation evaluation. It trips open when the pool has
// been saturated (checked-out count at or above highWaterMark) for at
// least sustainFor, and only resets once checked-out count falls back
// to or below lowWaterMark.
type BackpressureGate struct {
	highWaterMark int64
	lowWaterMark  int64
	sustainFor    time.Duration

	tripped        atomic.Bool
	saturatedSince atomic.Int64 // unix nanos, 0 when not currently saturated
}

// NewBackpressureGate builds a gate with the given water marks. A
// highWaterMark <= lowWaterMark disables the gate (Allow always true).
func NewBackpressureGate(highWaterMark, lowWaterMark int64, sustainFor time.Duration) *BackpressureGate {
	return &BackpressureGate{
		highWaterMark: highWaterMark,
		lowWaterMark:  lowWaterMark,
		sustainFor:    sustainFor,
	}
}

// Allow reports whether a new request should be accepted.
func (g *BackpressureGate) Allow() bool {
	return !g.tripped.Load()
}

// Sample evaluates one pool-stats reading against the current state.
// Intended to be called on a fixed schedule (see StartSampling), not
// per-request.
func (g *BackpressureGate) Sample(stats PoolStats, now time.Time) {
	if g.highWaterMark <= g.lowWaterMark {
		return
	}

	if stats.CheckedOut >= g.highWaterMark {
		if g.saturatedSince.Load() == 0 {
			g.saturatedSince.Store(now.UnixNano())
		}
		since := time.Unix(0, g.saturatedSince.Load())
		if now.Sub(since) >= g.sustainFor {
			g.tripped.Store(true)
		}
		return
	}

	if stats.CheckedOut <= g.lowWaterMark {
		g.saturatedSince.Store(0)
		g.tripped.Store(false)
	}
}

// StartSampling registers a gocron job that samples gw's pool stats on
// interval and feeds them to the gate until ctx is cancelled. Returns
// the scheduler so the caller can Shutdown it on process exit.
func StartSampling(ctx context.Context, gw Gateway, gate *BackpressureGate, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			stats := gw.PoolStats()
			gate.Sample(stats, time.Now().UTC())
			if !gate.Allow() {
				logger.Warn("backpressure gate tripped", "checkedOut", stats.CheckedOut)
			}
		}),
		gocron.WithName("store-pool-backpressure-sample"),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
	return sched, nil
}
