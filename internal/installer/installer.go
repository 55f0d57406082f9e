// Package installer is the caller-facing entry point: it runs catalog
// fetch, resolution, filtering, download and materialization in order.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/mcdl/internal/catalog"
	"github.com/spachava753/mcdl/internal/config"
	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/download"
	"github.com/spachava753/mcdl/internal/httpx"
	"github.com/spachava753/mcdl/internal/instance"
	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/resolver"
	"github.com/spachava753/mcdl/internal/rules"
	"github.com/spachava753/mcdl/internal/version"
)

// Installer installs versions into instances under one install root.
type Installer struct {
	cfg          models.Config
	catalog      *catalog.Client
	orchestrator *download.Orchestrator
}

// New creates an Installer from cfg. A nil getter uses an httpx.Client
// with the configured timeout.
func New(cfg models.Config, getter httpx.Getter) (*Installer, error) {
	alg, err := digest.ParseAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("hash_algorithm: %w", err)
	}
	if getter == nil {
		timeout := time.Duration(cfg.HTTPTimeoutSec * float64(time.Second))
		getter = httpx.NewClient(timeout, config.AppName+"/"+Version)
	}

	var cache *catalog.Cache
	if cfg.CacheDir != "" {
		if cache, err = catalog.NewCache(filepath.Join(cfg.CacheDir, "meta")); err != nil {
			return nil, fmt.Errorf("creating catalog cache: %w", err)
		}
	}

	return &Installer{
		cfg: cfg,
		catalog: catalog.NewClient(getter, catalog.Options{
			ManifestURL:   cfg.ManifestURL,
			Cache:         cache,
			TTL:           time.Duration(cfg.CacheTTLSec * float64(time.Second)),
			HashAlgorithm: alg,
		}),
		orchestrator: download.NewOrchestrator(getter, download.Options{
			Concurrency: cfg.Concurrency,
			Retry:       cfg.Retry,
		}),
	}, nil
}

// Version is reported in the User-Agent header. Set at link time.
var Version = "dev"

// Root returns the install root.
func (i *Installer) Root() string {
	return i.cfg.InstallRoot
}

// Catalog fetches the version catalog.
func (i *Installer) Catalog(ctx context.Context) (*models.Catalog, error) {
	return i.catalog.FetchCatalog(ctx)
}

// Describe resolves versionID without installing it.
func (i *Installer) Describe(ctx context.Context, versionID string) (*models.ResolvedDescriptor, error) {
	cat, err := i.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, versionID, cat, i.catalog)
}

// Install installs versionID into instanceID for platform. An empty
// instanceID is replaced by a generated one. Re-running an install
// downloads only what is missing or corrupt.
func (i *Installer) Install(ctx context.Context, versionID, instanceID string, platform models.Platform) (*models.InstalledInstance, error) {
	if instanceID == "" {
		instanceID = GenerateID(version.DefaultName)
	}
	if err := instance.ValidateID(instanceID); err != nil {
		return nil, err
	}

	cat, err := i.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	// Refuse before downloading anything over another version.
	wantID := resolver.Alias(versionID, cat)
	existing, err := instance.Load(i.cfg.InstallRoot, instanceID)
	switch {
	case err == nil && existing.VersionID != wantID:
		return nil, &models.InstanceConflictError{
			InstanceID:       instanceID,
			InstalledVersion: existing.VersionID,
			RequestedVersion: wantID,
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	resolved, err := resolver.Resolve(ctx, versionID, cat, i.catalog)
	if err != nil {
		return nil, err
	}

	refs := rules.Filter(resolved, platform)
	slog.Info("installing",
		"version", resolved.ID,
		"instance", instanceID,
		"os", platform.OS,
		"side", platform.Side,
		"artifacts", len(refs))

	results := i.orchestrator.InstallArtifacts(ctx, refs, filepath.Join(i.cfg.InstallRoot, instanceID))

	settings, err := i.settingsFor(resolved, refs, platform.Side)
	if err != nil {
		return nil, err
	}
	m := instance.NewMaterializer(instance.Options{
		Settings:   settings,
		AcceptEULA: i.cfg.AcceptEULA,
		Side:       platform.Side,
	})
	return m.Materialize(instanceID, resolved.ID, results, i.cfg.InstallRoot)
}

// settingsFor seeds settings.toml from the resolved descriptor.
func (i *Installer) settingsFor(resolved *models.ResolvedDescriptor, refs []models.ArtifactRef, side models.Side) (*models.InstanceSettings, error) {
	var javaMajor int
	if resolved.JavaVersion != nil {
		javaMajor = resolved.JavaVersion.MajorVersion
	}
	s, err := config.DefaultSettings(javaMajor, i.cfg.Instance)
	if err != nil {
		return nil, err
	}

	want := "server"
	if side == models.SideClient {
		want = "client"
	}
	for _, ref := range refs {
		if ref.Kind == models.KindDownload && ref.Key == want {
			s.Server.Jar = filepath.FromSlash(ref.Path)
		}
	}
	s.Server.MainClass = resolved.MainClass
	return &s, nil
}

// ListInstalled lists the instances under the install root.
func (i *Installer) ListInstalled() ([]models.InstalledInstance, error) {
	return ListInstalled(i.cfg.InstallRoot)
}

// Uninstall removes an instance.
func (i *Installer) Uninstall(instanceID string) error {
	return instance.Remove(i.cfg.InstallRoot, instanceID)
}

// ListInstalled lists the instances recorded under root.
func ListInstalled(root string) ([]models.InstalledInstance, error) {
	return instance.ListInstalled(root)
}

// GenerateID returns name with a short random suffix.
func GenerateID(name string) string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return name + "-" + suffix
}
