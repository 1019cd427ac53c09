// Package mongostore implements internal/store.Gateway against a
// sharded MongoDB-compatible document store using the official v2
// driver. Connection-pool lifecycle counters are populated by an
// event.PoolMonitor registered on the client at construction time.
package mongostore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"factored/internal/ingesterr"
	"factored/internal/store"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config configures a Store: the connection URI, target database, and
// the collection names for facts and index entries.
type Config struct {
	URI              string
	Database         string
	FactCollection   string
	IndexCollection  string
	MaxPoolSize      uint64
	MaxRetryDeadline time.Duration // bounds the backoff.Retry window for transient errors
}

// Store is the production Gateway implementation.
type Store struct {
	client        *mongo.Client
	db            *mongo.Database
	facts         *mongo.Collection
	indexes       *mongo.Collection
	retryDeadline time.Duration

	poolStats poolCounters
}

type poolCounters struct {
	checkedOut       atomic.Int64
	pendingCheckouts atomic.Int64
	created          atomic.Int64
	ready            atomic.Int64
	cleared          atomic.Int64
	closed           atomic.Int64
	checkoutsFailed  atomic.Int64
}

// Connect dials the store and registers pool-lifecycle event counters.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	s := &Store{retryDeadline: cfg.MaxRetryDeadline}
	if s.retryDeadline <= 0 {
		s.retryDeadline = 10 * time.Second
	}

	monitor := &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.PoolCreated:
				s.poolStats.created.Add(1)
			case event.PoolReady:
				s.poolStats.ready.Add(1)
			case event.PoolCleared:
				s.poolStats.cleared.Add(1)
			case event.PoolClosedEvent:
				s.poolStats.closed.Add(1)
			case event.ConnectionCheckOutStarted:
				s.poolStats.pendingCheckouts.Add(1)
			case event.ConnectionCheckedOut:
				s.poolStats.pendingCheckouts.Add(-1)
				s.poolStats.checkedOut.Add(1)
			case event.ConnectionCheckOutFailed:
				s.poolStats.pendingCheckouts.Add(-1)
				s.poolStats.checkoutsFailed.Add(1)
			case event.ConnectionCheckedIn:
				s.poolStats.checkedOut.Add(-1)
			}
		},
	}

	opts := options.Client().ApplyURI(cfg.URI).SetPoolMonitor(monitor)
	if cfg.MaxPoolSize > 0 {
		opts = opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ingesterr.ErrTransientStore, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", ingesterr.ErrTransientStore, err)
	}

	db := client.Database(cfg.Database)
	s.client = client
	s.db = db
	s.facts = db.Collection(cfg.FactCollection)
	s.indexes = db.Collection(cfg.IndexCollection)
	return s, nil
}

func (s *Store) PoolStats() store.PoolStats {
	return store.PoolStats{
		CheckedOut:       s.poolStats.checkedOut.Load(),
		PendingCheckouts: s.poolStats.pendingCheckouts.Load(),
		Created:          s.poolStats.created.Load(),
		Ready:            s.poolStats.ready.Load(),
		Cleared:          s.poolStats.cleared.Load(),
		Closed:           s.poolStats.closed.Load(),
		CheckoutsFailed:  s.poolStats.checkoutsFailed.Load(),
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// withRetry wraps a store operation with bounded exponential backoff,
// retrying only on errors classified as transient by isTransient.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = s.retryDeadline
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func isTransient(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
