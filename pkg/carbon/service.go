package carbon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Sumatoshi-tech/carbonstats/pkg/observability"
)

const flightKey = "stats"

// Computer produces a fresh Result.
type Computer interface {
	Compute(ctx context.Context) (*Result, error)
}

// ServiceOptions configures a StatsService.
type ServiceOptions struct {
	// TTL is how long a computed result may be served again. Zero always
	// recomputes.
	TTL time.Duration

	Metrics *observability.ScanMetrics

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// StatsService serves statistics to request handlers. Concurrent callers
// share one in-flight computation, and with a positive TTL a finished result
// is reused until it expires. Every caller receives its own copy.
type StatsService struct {
	computer Computer
	opts     ServiceOptions
	group    singleflight.Group

	mu       sync.Mutex
	cached   *Result
	cachedAt time.Time
}

// NewStatsService wraps computer.
func NewStatsService(computer Computer, opts ServiceOptions) *StatsService {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &StatsService{computer: computer, opts: opts}
}

// Stats returns statistics, computing them when no fresh result exists.
// Cancelling ctx abandons the wait without cancelling a computation other
// callers may share.
func (s *StatsService) Stats(ctx context.Context) (*Result, error) {
	if cached := s.fresh(); cached != nil {
		s.opts.Metrics.RecordServed(ctx, observability.SourceCache)

		return cached.Clone(), nil
	}

	ch := s.group.DoChan(flightKey, func() (any, error) {
		result, err := s.computer.Compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		s.store(result)

		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for statistics: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		source := observability.SourceComputed
		if res.Shared {
			source = observability.SourceShared
		}

		s.opts.Metrics.RecordServed(ctx, source)

		result, _ := res.Val.(*Result)

		return result.Clone(), nil
	}
}

// Invalidate drops any cached result.
func (s *StatsService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
}

func (s *StatsService) fresh() *Result {
	if s.opts.TTL <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil || s.opts.Now().Sub(s.cachedAt) >= s.opts.TTL {
		return nil
	}

	return s.cached
}

func (s *StatsService) store(result *Result) {
	if s.opts.TTL <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = result
	s.cachedAt = s.opts.Now()
}
