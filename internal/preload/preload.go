// Package preload warms the availability cache with frequently requested
// domains in the background.
package preload

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/serrors"
)

// PopularDomains is the default warm-up list.
var PopularDomains = []string{ //nolint: gochecknoglobals
	"google.com",
	"facebook.com",
	"amazon.com",
	"apple.com",
	"microsoft.com",
	"github.com",
	"openai.com",
	"example.com",
	"wikipedia.org",
	"netflix.com",
}

// Checker is the single-domain path of the engine.
type Checker interface {
	Lookup(ctx context.Context, name, extension string) (availability.Record, error)
}

// Summary reports a finished run.
type Summary struct {
	Loaded int
	Failed int
	Took   time.Duration
	// Err combines the per-domain failures.
	Err error
}

type Options struct {
	Domains     []string
	Concurrency int
}

// Job runs the warm-up once. Start it, then Wait for it at shutdown.
type Job struct {
	checker Checker
	opts    Options

	once    sync.Once
	done    chan struct{}
	summary Summary
}

func New(checker Checker, opts Options) *Job {
	if opts.Domains == nil {
		opts.Domains = PopularDomains
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Job{checker: checker, opts: opts, done: make(chan struct{})}
}

// Start launches the run and returns at once. Later calls are no-ops.
func (j *Job) Start(ctx context.Context) {
	j.once.Do(func() {
		go func() {
			defer close(j.done)
			j.summary = j.run(ctx)
		}()
	})
}

// Done is closed when the run finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the run finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-j.done:
		return j.summary, nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

func (j *Job) run(ctx context.Context) Summary {
	start := time.Now()

	var (
		mu  sync.Mutex
		sum Summary
	)
	fail := func(err error) {
		mu.Lock()
		sum.Failed++
		sum.Err = multierr.Append(sum.Err, err)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(j.opts.Concurrency)
	for _, d := range j.opts.Domains {
		g.Go(func() error {
			if ctx.Err() != nil {
				fail(ctx.Err())
				return nil
			}

			q, err := domain.Parse(d)
			if err != nil {
				logger.Warn(ctx, "preload: skipping invalid domain", zap.String("domain", d), zap.Error(err))
				fail(err)
				return nil
			}

			rec, err := j.checker.Lookup(ctx, q.Name, q.Extension)
			switch {
			case err != nil:
				fail(err)
			case rec.Error != "":
				logger.Warn(ctx, "preload: check failed", zap.String("domain", d), zap.String("error", rec.Error))
				fail(serrors.With(serrors.ErrUnavailable, "%s: %s", d, rec.Error))
			default:
				mu.Lock()
				sum.Loaded++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Took = time.Since(start)
	logger.Info(ctx, "preload: finished",
		zap.Int("loaded", sum.Loaded), zap.Int("failed", sum.Failed), zap.Duration("took", sum.Took))
	return sum
}
