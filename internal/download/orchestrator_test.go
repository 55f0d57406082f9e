package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/httpx"
	"github.com/spachava753/mcdl/internal/models"
)

func sha1Of(t *testing.T, s string) digest.Digest {
	t.Helper()
	d, _, err := digest.Reader(digest.SHA1, strings.NewReader(s))
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	return d
}

// fileServer serves fixed bodies by path and counts requests per path.
type fileServer struct {
	*httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]string
	status map[string][]int // per-path status sequence, consumed one per request
}

func newFileServer(t *testing.T) *fileServer {
	t.Helper()
	fs := &fileServer{
		hits:   map[string]int{},
		bodies: map[string]string{},
		status: map[string][]int{},
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.hits[r.URL.Path]++
		code := http.StatusOK
		if seq := fs.status[r.URL.Path]; len(seq) > 0 {
			code = seq[0]
			if len(seq) > 1 {
				fs.status[r.URL.Path] = seq[1:]
			}
		}
		body, ok := fs.bodies[r.URL.Path]
		fs.mu.Unlock()

		if !ok {
			code = http.StatusNotFound
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) hitsFor(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func newTestOrchestrator(concurrency int) *Orchestrator {
	o := NewOrchestrator(httpx.NewClient(5*time.Second, "mcdl/test"), Options{
		Concurrency: concurrency,
		Retry:       models.RetryConfig{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 5, Multiplier: 2},
	})
	o.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return o
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.Contains(d.Name(), ".part-") {
			t.Errorf("leftover temp file: %s", path)
		}
		return nil
	})
}

func downloadErr(t *testing.T, r models.ArtifactResult) *models.DownloadError {
	t.Helper()
	var de *models.DownloadError
	if !errors.As(r.Err, &de) {
		t.Fatalf("expected DownloadError for %s, got %v", r.Key, r.Err)
	}
	return de
}

func TestInstallArtifacts(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/client.jar"] = "client contents"
	srv.bodies["/lib-a.jar"] = "library a"

	refs := []models.ArtifactRef{
		{Key: "client", URL: srv.URL + "/client.jar", Hash: sha1Of(t, "client contents"), Size: 15, Path: "client.jar"},
		{Key: "lib-a", URL: srv.URL + "/lib-a.jar", Hash: sha1Of(t, "library a"), Path: "libraries/com/example/lib-a.jar"},
	}
	root := t.TempDir()

	results := newTestOrchestrator(2).InstallArtifacts(context.Background(), refs, root)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Key != refs[i].Key {
			t.Errorf("result %d key = %q, want %q", i, r.Key, refs[i].Key)
		}
		if !r.OK() {
			t.Fatalf("artifact %s failed: %v", r.Key, r.Err)
		}
		if !r.Artifact.Downloaded || r.Artifact.Attempts != 1 {
			t.Errorf("artifact %s: downloaded=%v attempts=%d", r.Key, r.Artifact.Downloaded, r.Artifact.Attempts)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "libraries", "com", "example", "lib-a.jar"))
	if err != nil {
		t.Fatalf("reading installed library: %v", err)
	}
	if string(data) != "library a" {
		t.Errorf("library content = %q", data)
	}
	assertNoPartFiles(t, root)
}

func TestInstallArtifacts_SkipsExisting(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/client.jar"] = "client contents"
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "client.jar"), []byte("client contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	refs := []models.ArtifactRef{
		{Key: "client", URL: srv.URL + "/client.jar", Hash: sha1Of(t, "client contents"), Path: "client.jar"},
	}
	results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, root)

	if !results[0].OK() {
		t.Fatalf("expected success, got %v", results[0].Err)
	}
	if results[0].Artifact.Downloaded {
		t.Error("expected existing file to be reused")
	}
	if got := srv.hitsFor("/client.jar"); got != 0 {
		t.Errorf("expected no requests, got %d", got)
	}
}

func TestInstallArtifacts_ReplacesCorruptExisting(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/client.jar"] = "client contents"
	root := t.TempDir()
	target := filepath.Join(root, "client.jar")

	if err := os.WriteFile(target, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	refs := []models.ArtifactRef{
		{Key: "client", URL: srv.URL + "/client.jar", Hash: sha1Of(t, "client contents"), Path: "client.jar"},
	}
	results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, root)
	if !results[0].OK() || !results[0].Artifact.Downloaded {
		t.Fatalf("expected a fresh download, got %+v", results[0])
	}
	if data, _ := os.ReadFile(target); string(data) != "client contents" {
		t.Errorf("content = %q", data)
	}
}

func TestInstallArtifacts_NoDigestReuse(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/a.jar"] = "abc"
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.jar"), []byte("xyz"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		size     int64
		wantHits int
	}{
		{"known size reuses", 3, 0},
		{"unknown size downloads", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := srv.hitsFor("/a.jar")
			refs := []models.ArtifactRef{{Key: "a", URL: srv.URL + "/a.jar", Size: tt.size, Path: "a.jar"}}
			results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, root)
			if !results[0].OK() {
				t.Fatalf("unexpected failure: %v", results[0].Err)
			}
			if got := srv.hitsFor("/a.jar") - before; got != tt.wantHits {
				t.Errorf("requests = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestInstallArtifacts_IntegrityMismatch(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/bad.jar"] = "tampered"
	srv.bodies["/good.jar"] = "good"
	root := t.TempDir()

	refs := []models.ArtifactRef{
		{Key: "bad", URL: srv.URL + "/bad.jar", Hash: sha1Of(t, "original"), Path: "bad.jar"},
		{Key: "good", URL: srv.URL + "/good.jar", Hash: sha1Of(t, "good"), Path: "good.jar"},
	}
	results := newTestOrchestrator(2).InstallArtifacts(context.Background(), refs, root)

	de := downloadErr(t, results[0])
	if de.Type != models.ErrIntegrityMismatch {
		t.Errorf("type = %s, want %s", de.Type, models.ErrIntegrityMismatch)
	}
	if de.Expected != sha1Of(t, "original").String() || de.Actual != sha1Of(t, "tampered").String() {
		t.Errorf("expected/actual = %s/%s", de.Expected, de.Actual)
	}
	if got := srv.hitsFor("/bad.jar"); got != 1 {
		t.Errorf("integrity failures must not be retried, got %d requests", got)
	}
	if _, err := os.Stat(filepath.Join(root, "bad.jar")); !os.IsNotExist(err) {
		t.Errorf("mismatched file was promoted: %v", err)
	}
	if !results[1].OK() {
		t.Errorf("unrelated artifact failed: %v", results[1].Err)
	}
	assertNoPartFiles(t, root)
}

func TestInstallArtifacts_SizeMismatch(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/a.jar"] = "four"
	root := t.TempDir()

	refs := []models.ArtifactRef{{Key: "a", URL: srv.URL + "/a.jar", Size: 10, Path: "a.jar"}}
	results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, root)

	de := downloadErr(t, results[0])
	if de.Type != models.ErrSizeMismatch || de.Expected != "10" || de.Actual != "4" {
		t.Errorf("unexpected error: %+v", de)
	}
	if _, err := os.Stat(filepath.Join(root, "a.jar")); !os.IsNotExist(err) {
		t.Error("size-mismatched file was promoted")
	}
	assertNoPartFiles(t, root)
}

func TestInstallArtifacts_Retry(t *testing.T) {
	tests := []struct {
		name         string
		status       []int
		wantType     models.ErrorType
		wantOK       bool
		wantRequests int
	}{
		{"client error not retried", []int{http.StatusForbidden}, models.ErrHTTPClient, false, 1},
		{"server error exhausts retries", []int{http.StatusInternalServerError}, models.ErrTransientNetwork, false, 3},
		{"too many requests retried", []int{http.StatusTooManyRequests, http.StatusOK}, "", true, 2},
		{"recovers after transient", []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK}, "", true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFileServer(t)
			srv.bodies["/a.jar"] = "payload"
			srv.status["/a.jar"] = tt.status

			refs := []models.ArtifactRef{{Key: "a", URL: srv.URL + "/a.jar", Hash: sha1Of(t, "payload"), Path: "a.jar"}}
			results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, t.TempDir())

			if got := srv.hitsFor("/a.jar"); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
			if tt.wantOK {
				if !results[0].OK() {
					t.Fatalf("expected success, got %v", results[0].Err)
				}
				if results[0].Artifact.Attempts != tt.wantRequests {
					t.Errorf("attempts = %d", results[0].Artifact.Attempts)
				}
				return
			}
			de := downloadErr(t, results[0])
			if de.Type != tt.wantType {
				t.Errorf("type = %s, want %s", de.Type, tt.wantType)
			}
			if de.Attempts != tt.wantRequests {
				t.Errorf("attempts = %d, want %d", de.Attempts, tt.wantRequests)
			}
		})
	}
}

func TestInstallArtifacts_TransportRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.Write([]byte("payload"))
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	refs := []models.ArtifactRef{{Key: "a", URL: srv.URL + "/a.jar", Hash: sha1Of(t, "payload"), Path: "a.jar"}}
	results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, root)

	if !results[0].OK() {
		t.Fatalf("expected success after dropped connection, got %v", results[0].Err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if results[0].Artifact.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", results[0].Artifact.Attempts)
	}
	assertNoPartFiles(t, root)
}

func TestInstallArtifacts_ConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("payload"))
	}))
	t.Cleanup(srv.Close)

	var refs []models.ArtifactRef
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("a%d.jar", i)
		refs = append(refs, models.ArtifactRef{Key: name, URL: srv.URL + "/" + name, Hash: sha1Of(t, "payload"), Path: name})
	}
	results := newTestOrchestrator(limit).InstallArtifacts(context.Background(), refs, t.TempDir())

	for _, r := range results {
		if !r.OK() {
			t.Errorf("%s failed: %v", r.Key, r.Err)
		}
	}
	if got := peak.Load(); got > limit {
		t.Errorf("peak in-flight requests = %d, want <= %d", got, limit)
	}
}

func TestInstallArtifacts_NonRetryableSetup(t *testing.T) {
	srv := newFileServer(t)
	srv.bodies["/a.jar"] = "payload"

	tests := []struct {
		name     string
		ref      models.ArtifactRef
		wantType models.ErrorType
	}{
		{
			name:     "malformed url",
			ref:      models.ArtifactRef{Key: "a", URL: "http://bad host/a.jar", Hash: sha1Of(t, "payload"), Path: "a.jar"},
			wantType: models.ErrInvalidRequest,
		},
		{
			name:     "unsupported digest",
			ref:      models.ArtifactRef{Key: "a", URL: srv.URL + "/a.jar", Hash: digest.Digest{Algorithm: "md5", Sum: "0123"}, Path: "a.jar"},
			wantType: models.ErrUnsupportedDigest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			results := newTestOrchestrator(1).InstallArtifacts(context.Background(), []models.ArtifactRef{tt.ref}, root)
			de := downloadErr(t, results[0])
			if de.Type != tt.wantType {
				t.Errorf("type = %s, want %s", de.Type, tt.wantType)
			}
			if de.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", de.Attempts)
			}
			assertNoPartFiles(t, root)
		})
	}
}

func TestInstallArtifacts_Cancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		once.Do(func() { close(started) })
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	refs := []models.ArtifactRef{
		{Key: "a", URL: srv.URL + "/a.jar", Size: 1000, Path: "a.jar"},
		{Key: "b", URL: srv.URL + "/b.jar", Size: 1000, Path: "b.jar"},
		{Key: "c", URL: srv.URL + "/c.jar", Size: 1000, Path: "c.jar"},
	}
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	var finished atomic.Int32
	o := newTestOrchestrator(1)
	o.onResult = func(models.ArtifactResult) { finished.Add(1) }
	results := o.InstallArtifacts(ctx, refs, root)

	for _, r := range results {
		if de := downloadErr(t, r); de.Type != models.ErrCancelled {
			t.Errorf("%s: type = %s, want %s", r.Key, de.Type, models.ErrCancelled)
		}
		if _, err := os.Stat(filepath.Join(root, r.Key+".jar")); !os.IsNotExist(err) {
			t.Errorf("%s: file present after cancellation", r.Key)
		}
	}
	if got := finished.Load(); got != 3 {
		t.Errorf("OnResult called %d times, want 3", got)
	}
	assertNoPartFiles(t, root)
}

func TestInstallArtifacts_PathEscape(t *testing.T) {
	refs := []models.ArtifactRef{{Key: "evil", URL: "http://unused.invalid/x", Path: "../outside.jar"}}
	results := newTestOrchestrator(1).InstallArtifacts(context.Background(), refs, t.TempDir())

	if de := downloadErr(t, results[0]); de.Type != models.ErrFilesystem {
		t.Errorf("type = %s, want %s", de.Type, models.ErrFilesystem)
	}
}

func TestBackoff(t *testing.T) {
	cfg := models.RetryConfig{InitialDelayMs: 200, MaxDelayMs: 1000, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := backoff(cfg, tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseVerifying.String() != "verifying" || Phase(42).String() != "phase(42)" {
		t.Error("unexpected phase names")
	}
}
