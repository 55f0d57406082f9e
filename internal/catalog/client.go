// Package catalog fetches the version manifest and version packages,
// caching both on disk so an offline install can still resolve.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/httpx"
	"github.com/spachava753/mcdl/internal/models"
)

// maxBodySize bounds manifest and package downloads.
const maxBodySize = 64 << 20

// Options configures a Client.
type Options struct {
	ManifestURL   string
	Cache         *Cache // nil disables caching
	TTL           time.Duration
	HashAlgorithm digest.Algorithm
}

// Client reads the catalog and version descriptors. It never retries;
// a failed remote read falls back to the cache when possible.
type Client struct {
	http        httpx.Getter
	cache       *Cache
	manifestURL string
	ttl         time.Duration
	hashAlg     digest.Algorithm

	snapshot atomic.Pointer[models.Catalog]
}

// NewClient creates a catalog client.
func NewClient(getter httpx.Getter, opts Options) *Client {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HashAlgorithm == "" {
		opts.HashAlgorithm = digest.SHA1
	}
	return &Client{
		http:        getter,
		cache:       opts.Cache,
		manifestURL: opts.ManifestURL,
		ttl:         opts.TTL,
		hashAlg:     opts.HashAlgorithm,
	}
}

// Snapshot returns the last catalog fetched, or nil.
func (c *Client) Snapshot() *models.Catalog {
	return c.snapshot.Load()
}

// FetchCatalog returns the manifest. A fresh cached copy is served
// without touching the network; a stale one is served only when the
// remote read fails.
func (c *Client) FetchCatalog(ctx context.Context) (*models.Catalog, error) {
	entry := c.cached(c.manifestURL)
	if entry != nil && entry.fresh(c.now()) {
		if cat, err := parseCatalog(entry.Body); err == nil {
			slog.Debug("catalog served from cache", "url", c.manifestURL)
			c.snapshot.Store(cat)
			return cat, nil
		}
	}

	cat, err := c.fetchCatalog(ctx)
	if err == nil {
		c.snapshot.Store(cat)
		return cat, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if entry != nil {
		if cached, perr := parseCatalog(entry.Body); perr == nil {
			slog.Warn("catalog unreachable, using stale cache",
				"url", c.manifestURL,
				"fetched_at", entry.FetchedAt,
				"error", err)
			c.snapshot.Store(cached)
			return cached, nil
		}
	}

	return nil, &models.CatalogUnavailableError{URL: c.manifestURL, Err: err}
}

func (c *Client) fetchCatalog(ctx context.Context) (*models.Catalog, error) {
	body, header, err := c.get(ctx, c.manifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	cat, err := parseCatalog(body)
	if err != nil {
		return nil, err
	}
	c.save(c.manifestURL, body, header)
	slog.Debug("catalog fetched", "url", c.manifestURL, "versions", len(cat.Versions))
	return cat, nil
}

// FetchDescriptor downloads and decodes the version package at location.
func (c *Client) FetchDescriptor(ctx context.Context, location string) (*models.VersionDescriptor, error) {
	entry := c.cached(location)
	if entry != nil && entry.fresh(c.now()) {
		if desc, err := parseDescriptor(location, entry.Body, c.hashAlg); err == nil {
			slog.Debug("descriptor served from cache", "url", location)
			return desc, nil
		}
	}

	body, header, err := c.get(ctx, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) {
			return nil, &models.DescriptorFetchError{Status: statusErr.StatusCode, Location: location, Err: err}
		}
		if entry != nil {
			if desc, perr := parseDescriptor(location, entry.Body, c.hashAlg); perr == nil {
				slog.Warn("descriptor unreachable, using stale cache", "url", location, "error", err)
				return desc, nil
			}
		}
		return nil, &models.DescriptorFetchError{Location: location, Err: err}
	}

	desc, err := parseDescriptor(location, body, c.hashAlg)
	if err != nil {
		return nil, err
	}
	c.save(location, body, header)
	return desc, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, http.Header, error) {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, nil, &httpx.TransportError{URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxBodySize)
	}
	return body, resp.Header, nil
}

func (c *Client) cached(url string) *cacheEntry {
	if c.cache == nil {
		return nil
	}
	entry, err := c.cache.load(url)
	if err != nil {
		slog.Warn("ignoring unreadable cache entry", "url", url, "error", err)
		return nil
	}
	return entry
}

func (c *Client) save(url string, body []byte, header http.Header) {
	if c.cache == nil {
		return
	}
	if err := c.cache.store(url, body, ttlFromHeaders(header, c.ttl)); err != nil {
		slog.Warn("failed to cache response", "url", url, "error", err)
	}
}

func (c *Client) now() time.Time {
	if c.cache != nil {
		return c.cache.now()
	}
	return time.Now()
}
