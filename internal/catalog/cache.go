package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/spachava753/mcdl/internal/util"
)

// DefaultTTL applies when a response carries no usable max-age.
const DefaultTTL = 10 * time.Minute

// cacheEntry is the on-disk form of a cached response body.
type cacheEntry struct {
	URL       string    `cbor:"1,keyasint"`
	FetchedAt time.Time `cbor:"2,keyasint"`
	Expires   time.Time `cbor:"3,keyasint"`
	Body      []byte    `cbor:"4,keyasint"`
}

func (e *cacheEntry) fresh(now time.Time) bool {
	return now.Before(e.Expires)
}

// Cache stores response bodies under dir, one zstd-compressed CBOR
// file per URL.
type Cache struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// NewCache creates a cache rooted at dir. The directory is created on
// first store.
func NewCache(dir string) (*Cache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Cache{dir: dir, enc: enc, dec: dec, now: time.Now}, nil
}

// path returns <dir>/<h[0:2]>/<h[2:4]>/<h> for the URL's SHA-256.
func (c *Cache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, h[0:2], h[2:4], h)
}

// load returns the entry for url, or nil when nothing usable is cached.
func (c *Cache) load(url string) (*cacheEntry, error) {
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing cache entry: %w", err)
	}
	var entry cacheEntry
	if err := cbor.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	if entry.URL != url {
		return nil, nil
	}
	return &entry, nil
}

func (c *Cache) store(url string, body []byte, ttl time.Duration) error {
	now := c.now()
	raw, err := cbor.Marshal(cacheEntry{
		URL:       url,
		FetchedAt: now,
		Expires:   now.Add(ttl),
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	p := c.path(url)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := util.WriteFileAtomic(p, c.enc.EncodeAll(raw, nil), 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// ttlFromHeaders reads Cache-Control max-age minus Age. no-store and
// no-cache yield zero; a missing max-age yields def.
func ttlFromHeaders(h http.Header, def time.Duration) time.Duration {
	cc := h.Get("Cache-Control")
	if cc == "" {
		return def
	}

	maxAge := -1
	for _, directive := range strings.Split(cc, ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(directive), "=")
		switch strings.ToLower(name) {
		case "no-store", "no-cache":
			return 0
		case "max-age":
			if n, err := strconv.Atoi(strings.Trim(value, `"`)); err == nil && n >= 0 {
				maxAge = n
			}
		}
	}
	if maxAge < 0 {
		return def
	}

	if age, err := strconv.Atoi(h.Get("Age")); err == nil && age > 0 {
		maxAge -= age
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return time.Duration(maxAge) * time.Second
}
