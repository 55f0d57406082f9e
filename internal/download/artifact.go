package download

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/httpx"
	"github.com/spachava753/mcdl/internal/models"
)

// Phase is the position of one artifact in its install lifecycle.
type Phase int

const (
	PhasePending Phase = iota
	PhaseDownloading
	PhaseVerifying
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseDownloading:
		return "downloading"
	case PhaseVerifying:
		return "verifying"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// state is one artifact's progress. Each attempt takes the previous
// state and returns the next one.
type state struct {
	Phase     Phase
	Attempts  int
	Size      int64
	Err       *models.DownloadError
	Retryable bool
}

func (o *Orchestrator) install(ctx context.Context, ref models.ArtifactRef, root string) models.ArtifactResult {
	target, err := targetPath(root, ref.Path)
	if err != nil {
		return failure(ref, &models.DownloadError{Type: models.ErrFilesystem, Key: ref.Key, URL: ref.URL, Err: err})
	}

	if size, ok := reusable(ref, target); ok {
		slog.Debug("artifact already present", "key", ref.Key, "path", target)
		return models.ArtifactResult{
			Key:      ref.Key,
			Artifact: &models.InstalledArtifact{Key: ref.Key, Path: target, Size: size},
		}
	}

	st := state{Phase: PhasePending}
	for {
		st = o.attempt(ctx, ref, target, st)

		if st.Phase == PhaseDone {
			return models.ArtifactResult{
				Key: ref.Key,
				Artifact: &models.InstalledArtifact{
					Key:        ref.Key,
					Path:       target,
					Size:       st.Size,
					Downloaded: true,
					Attempts:   st.Attempts,
				},
			}
		}

		st.Err.Attempts = st.Attempts
		if st.Err.Type == models.ErrCancelled || !st.Retryable || st.Attempts >= o.retry.MaxAttempts {
			return failure(ref, st.Err)
		}

		delay := backoff(o.retry, st.Attempts)
		slog.Warn("retrying artifact download",
			"key", ref.Key,
			"attempt", st.Attempts,
			"delay", delay,
			"error", st.Err.Err)
		if err := o.sleep(ctx, delay); err != nil {
			return cancelled(ref, st.Attempts, err)
		}
		st.Phase = PhasePending
	}
}

// attempt runs one download of ref into target.
func (o *Orchestrator) attempt(ctx context.Context, ref models.ArtifactRef, target string, st state) state {
	st.Attempts++
	st.Phase = PhaseDownloading
	st.Err = nil
	st.Retryable = false

	fail := func(typ models.ErrorType, err error) state {
		st.Phase = PhaseFailed
		st.Err = &models.DownloadError{Type: typ, Key: ref.Key, URL: ref.URL, Err: err}
		return st
	}

	if err := ctx.Err(); err != nil {
		return fail(models.ErrCancelled, err)
	}

	slog.Debug("downloading artifact", "key", ref.Key, "url", ref.URL, "attempt", st.Attempts)
	resp, err := o.http.Get(ctx, ref.URL)
	if err != nil {
		if ctx.Err() != nil {
			return fail(models.ErrCancelled, ctx.Err())
		}
		var reqErr *httpx.RequestError
		if errors.As(err, &reqErr) {
			return fail(models.ErrInvalidRequest, err)
		}
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) && !statusErr.Transient() {
			st = fail(models.ErrHTTPClient, err)
			st.Err.StatusCode = statusErr.StatusCode
			return st
		}
		st = fail(models.ErrTransientNetwork, err)
		if statusErr != nil {
			st.Err.StatusCode = statusErr.StatusCode
		}
		st.Retryable = httpx.IsTransient(err)
		return st
	}
	defer resp.Body.Close()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(models.ErrFilesystem, fmt.Errorf("creating directory: %w", err))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".part-*")
	if err != nil {
		return fail(models.ErrFilesystem, fmt.Errorf("creating temp file: %w", err))
	}
	tmpPath := tmp.Name()
	promoted := false
	defer func() {
		if !promoted {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var h hash.Hash
	w := io.Writer(tmp)
	if !ref.Hash.IsZero() {
		if h, err = ref.Hash.Algorithm.New(); err != nil {
			return fail(models.ErrUnsupportedDigest, err)
		}
		w = io.MultiWriter(tmp, h)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return fail(models.ErrCancelled, ctx.Err())
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return fail(models.ErrFilesystem, fmt.Errorf("writing temp file: %w", err))
		}
		st = fail(models.ErrTransientNetwork, fmt.Errorf("reading body: %w", err))
		st.Retryable = true
		return st
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		st = fail(models.ErrTransientNetwork, fmt.Errorf("truncated body: got %d of %d bytes", n, resp.ContentLength))
		st.Retryable = true
		return st
	}

	st.Phase = PhaseVerifying
	st.Size = n
	if h != nil {
		if actual := digest.FromHash(ref.Hash.Algorithm, h); !actual.Equal(ref.Hash) {
			st = fail(models.ErrIntegrityMismatch, nil)
			st.Err.Expected = ref.Hash.String()
			st.Err.Actual = actual.String()
			return st
		}
	}
	if ref.Size > 0 && n != ref.Size {
		st = fail(models.ErrSizeMismatch, nil)
		st.Err.Expected = strconv.FormatInt(ref.Size, 10)
		st.Err.Actual = strconv.FormatInt(n, 10)
		return st
	}

	if err := tmp.Sync(); err != nil {
		return fail(models.ErrFilesystem, fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(models.ErrFilesystem, fmt.Errorf("closing temp file: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return fail(models.ErrCancelled, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fail(models.ErrFilesystem, fmt.Errorf("moving into place: %w", err))
	}
	promoted = true

	st.Phase = PhaseDone
	return st
}

// reusable reports whether target already holds ref's content. Without
// a digest only a known size can vouch for the file.
func reusable(ref models.ArtifactRef, target string) (int64, bool) {
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	if ref.Hash.IsZero() {
		return info.Size(), ref.Size > 0 && info.Size() == ref.Size
	}
	if ref.Size > 0 && info.Size() != ref.Size {
		return 0, false
	}
	d, n, err := digest.File(ref.Hash.Algorithm, target)
	if err != nil {
		slog.Debug("hashing existing artifact failed", "path", target, "error", err)
		return 0, false
	}
	return n, d.Equal(ref.Hash)
}

// targetPath joins a slash-separated relative path onto root, refusing
// anything that would land outside it.
func targetPath(root, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("artifact path %q is not inside the instance", rel)
	}
	return filepath.Join(root, local), nil
}

func failure(ref models.ArtifactRef, err *models.DownloadError) models.ArtifactResult {
	return models.ArtifactResult{Key: ref.Key, Err: err}
}
