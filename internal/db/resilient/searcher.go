// Package resilient wraps index calls with retries and a circuit breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	bckoff "github.com/cenkalti/backoff/v4"
	cb "github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Config tunes retries and the breaker.
type Config struct {
	Name string
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	// MaxElapsed caps the total time spent retrying a single call.
	MaxElapsed time.Duration
	// MaxRetries caps retry attempts; 0 means bounded only by MaxElapsed.
	MaxRetries uint64
	// FailureThreshold consecutive failures trip the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests are let through while probing.
	HalfOpenRequests uint32
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "index"
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 50 * time.Millisecond
	}
	if c.MaxElapsed == 0 {
		c.MaxElapsed = 2 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
}

// Searcher decorates a db.Searcher.
type Searcher struct {
	next    db.Searcher
	breaker *cb.CircuitBreaker
	cfg     Config
	log     *zap.Logger
}

// New wraps next with retries and a circuit breaker.
func New(next db.Searcher, cfg Config, log *zap.Logger) *Searcher {
	cfg.ApplyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	settings := cb.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Warn("Circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
	}
	return &Searcher{next: next, breaker: cb.NewCircuitBreaker(settings), cfg: cfg, log: log}
}

// Search runs FT.SEARCH through the breaker.
func (s *Searcher) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	var res *db.SearchResult
	err := s.call(ctx, db.OpSearch, func() error {
		r, err := s.next.Search(ctx, q)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// Aggregate runs FT.AGGREGATE through the breaker.
func (s *Searcher) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	var rows []db.AggregateRow
	err := s.call(ctx, db.OpAggregate, func() error {
		r, err := s.next.Aggregate(ctx, q)
		if err != nil {
			return err
		}
		rows = r
		return nil
	})
	return rows, err
}

// State reports the breaker state, e.g. for health checks.
func (s *Searcher) State() cb.State {
	return s.breaker.State()
}

func (s *Searcher) call(ctx context.Context, op string, action func() error) error {
	operation := func() error {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, action()
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, cb.ErrOpenState), errors.Is(err, cb.ErrTooManyRequests):
			return bckoff.Permanent(fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err))
		case !retryable(err):
			if rq := db.RejectedQuery(err); rq != nil {
				err = rq
			}
			return bckoff.Permanent(err)
		}
		return err
	}

	expBackoff := bckoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.cfg.InitialInterval
	expBackoff.MaxElapsedTime = s.cfg.MaxElapsed
	var policy bckoff.BackOff = expBackoff
	if s.cfg.MaxRetries > 0 {
		policy = bckoff.WithMaxRetries(policy, s.cfg.MaxRetries)
	}

	notify := func(err error, wait time.Duration) {
		s.log.Warn("Index call failed, retrying",
			zap.String("op", op), zap.Duration("wait", wait), zap.Error(err))
	}
	return bckoff.RetryNotify(operation, bckoff.WithContext(policy, ctx), notify)
}

// retryable reports whether err is a transient backend failure. Errors that
// are not retryable do not count against the breaker either.
func retryable(err error) bool {
	switch {
	case db.RejectedQuery(err) != nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, db.ErrIndexNotFound), errors.Is(err, db.ErrUnsupportedQuery):
		return false
	case errors.Is(err, db.ErrKeyNotFound):
		return false
	}
	return true
}

// Store is a db.Store whose search calls go through a Searcher.
type Store struct {
	db.Store
	searcher *Searcher
}

// Wrap decorates the search calls of s.
func Wrap(s db.Store, cfg Config, log *zap.Logger) *Store {
	return &Store{Store: s, searcher: New(s, cfg, log)}
}

// Search runs FT.SEARCH with retries.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	return s.searcher.Search(ctx, q)
}

// Aggregate runs FT.AGGREGATE with retries.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	return s.searcher.Aggregate(ctx, q)
}

// BreakerState reports the state of the search breaker.
func (s *Store) BreakerState() cb.State {
	return s.searcher.State()
}
