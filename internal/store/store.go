// Package store shares balance and issues fetches between every view that
// needs them. Concurrent requests for the same resource ride on one API call.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerview/ledgerview/internal/metrics"
	"github.com/ledgerview/ledgerview/internal/model"
)

// Resource names, used in logs and metrics labels.
const (
	ResourceBalance = "balance"
	ResourceIssues  = "issues"
)

// Fetcher is the part of api.Service the store reads from.
type Fetcher interface {
	GetBalance(ctx context.Context) (model.Balance, error)
	GetIssues(ctx context.Context) ([]model.Transaction, error)
}

// Result is the settled outcome of one fetch: a value or an error.
type Result[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// State is what the transactions page renders. Each half fails independently.
type State struct {
	Balance Result[model.Balance]
	Issues  Result[[]model.Transaction]
}

// Options configures a Store.
type Options struct {
	TTL     time.Duration // 0 = share in-flight requests only
	Logger  *zerolog.Logger // nil = discard
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Store deduplicates fetches per resource.
type Store struct {
	fetcher Fetcher
	ttl     time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	balance *resource[model.Balance]
	issues  *resource[[]model.Transaction]
}

// New creates a Store reading from f.
func New(f Fetcher, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Store{
		fetcher: f,
		ttl:     opts.TTL,
		log:     log,
		metrics: opts.Metrics,
		now:     now,
		balance: &resource[model.Balance]{name: ResourceBalance},
		issues:  &resource[[]model.Transaction]{name: ResourceIssues},
	}
}

// Balance returns the current balance.
func (s *Store) Balance(ctx context.Context) Result[model.Balance] {
	return get(ctx, s, s.balance, s.fetcher.GetBalance)
}

// Issues returns the current issues, in server order. Each caller gets its
// own slice, so callers may modify it.
func (s *Store) Issues(ctx context.Context) Result[[]model.Transaction] {
	res := get(ctx, s, s.issues, s.fetcher.GetIssues)
	if res.Value == nil {
		res.Value = []model.Transaction{}
	} else {
		res.Value = slices.Clone(res.Value)
	}
	return res
}

// Transactions fetches balance and issues concurrently.
func (s *Store) Transactions(ctx context.Context) State {
	var st State
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.Balance = s.Balance(ctx)
	}()
	go func() {
		defer wg.Done()
		st.Issues = s.Issues(ctx)
	}()
	wg.Wait()
	return st
}

// Invalidate forgets cached values and detaches in-flight requests, so the
// next read hits the API. Call it after the statement changes.
func (s *Store) Invalidate() {
	s.balance.invalidate()
	s.issues.invalidate()
}

type call[T any] struct {
	done chan struct{}
	res  Result[T]
}

type resource[T any] struct {
	name     string
	mu       sync.Mutex
	gen      uint64
	inflight *call[T]
	cached   *Result[T]
}

func (r *resource[T]) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.inflight = nil
	r.cached = nil
}

func get[T any](ctx context.Context, s *Store, r *resource[T], fetch func(context.Context) (T, error)) Result[T] {
	r.mu.Lock()
	if r.cached != nil && s.ttl > 0 && s.now().Sub(r.cached.FetchedAt) < s.ttl {
		res := *r.cached
		r.mu.Unlock()
		s.metrics.Dedup(r.name)
		return res
	}
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		s.metrics.Dedup(r.name)
		return wait(ctx, c)
	}

	c := &call[T]{done: make(chan struct{})}
	r.inflight = c
	gen := r.gen
	r.mu.Unlock()

	// The fetch outlives any single caller; other waiters still need it.
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		v, err := fetch(fetchCtx)
		res := Result[T]{Value: v, Err: err, FetchedAt: s.now()}
		if err != nil {
			s.log.Warn().Err(err).Str("resource", r.name).Msg("fetch failed")
		}

		r.mu.Lock()
		if r.inflight == c {
			r.inflight = nil
		}
		if err == nil && s.ttl > 0 && r.gen == gen {
			r.cached = &res
		}
		r.mu.Unlock()

		c.res = res
		close(c.done)
	}()
	return wait(ctx, c)
}

func wait[T any](ctx context.Context, c *call[T]) Result[T] {
	select {
	case <-c.done:
		return c.res
	case <-ctx.Done():
		return Result[T]{Err: ctx.Err()}
	}
}
