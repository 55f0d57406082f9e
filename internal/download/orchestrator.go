// Package download installs artifacts into an instance directory with
// bounded parallelism, verifying every file before it is moved into
// place.
package download

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/mcdl/internal/httpx"
	"github.com/spachava753/mcdl/internal/models"
)

// DefaultConcurrency is used when Options.Concurrency is not positive.
const DefaultConcurrency = 8

// Options configures an Orchestrator.
type Options struct {
	Concurrency int
	Retry       models.RetryConfig

	// OnResult, when set, is called once per artifact as it finishes.
	// It may be called from several goroutines at once.
	OnResult func(models.ArtifactResult)
}

// Orchestrator downloads artifacts. It holds no per-install state and
// may be reused.
type Orchestrator struct {
	http        httpx.Getter
	concurrency int
	retry       models.RetryConfig
	onResult    func(models.ArtifactResult)

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(getter httpx.Getter, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	return &Orchestrator{
		http:        getter,
		concurrency: opts.Concurrency,
		retry:       opts.Retry,
		onResult:    opts.OnResult,
		sleep:       sleepCtx,
	}
}

// InstallArtifacts installs refs under root and returns one result per
// ref in input order. A failed artifact does not stop the others. Once
// ctx is cancelled no new downloads start; the remaining refs get
// cancelled results.
func (o *Orchestrator) InstallArtifacts(ctx context.Context, refs []models.ArtifactRef, root string) []models.ArtifactResult {
	results := make([]models.ArtifactResult, len(refs))
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			results[i] = o.finish(cancelled(ref, 0, err))
			continue
		}
		i, ref := i, ref
		g.Go(func() error {
			results[i] = o.finish(o.install(ctx, ref, root))
			return nil
		})
	}
	g.Wait()

	var failed, downloaded int
	for _, r := range results {
		switch {
		case !r.OK():
			failed++
		case r.Artifact.Downloaded:
			downloaded++
		}
	}
	slog.Debug("artifacts processed",
		"total", len(refs),
		"downloaded", downloaded,
		"reused", len(refs)-downloaded-failed,
		"failed", failed,
		"duration", time.Since(start))

	return results
}

func (o *Orchestrator) finish(r models.ArtifactResult) models.ArtifactResult {
	if o.onResult != nil {
		o.onResult(r)
	}
	return r
}

func cancelled(ref models.ArtifactRef, attempts int, err error) models.ArtifactResult {
	return models.ArtifactResult{
		Key: ref.Key,
		Err: &models.DownloadError{
			Type:     models.ErrCancelled,
			Key:      ref.Key,
			URL:      ref.URL,
			Attempts: attempts,
			Err:      err,
		},
	}
}
