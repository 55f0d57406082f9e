// Package instance owns the on-disk instance directory: the settings
// and EULA files and the instance.json record that marks an install
// as complete.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spachava753/mcdl/internal/config"
	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/util"
)

const (
	// RecordFile marks an instance as fully installed.
	RecordFile = "instance.json"
	EULAFile   = "eula.txt"
)

// Options configures a Materializer.
type Options struct {
	// Settings is written to settings.toml when the instance has none.
	// Nil skips the file.
	Settings *models.InstanceSettings

	// AcceptEULA writes eula.txt for server installs.
	AcceptEULA bool
	Side       models.Side

	Now func() time.Time
}

// Materializer records completed installs.
type Materializer struct {
	opts Options
}

// NewMaterializer creates a Materializer.
func NewMaterializer(opts Options) *Materializer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Materializer{opts: opts}
}

// Materialize writes the instance record for a finished install. If
// any result failed it returns *models.IncompleteInstallError and
// writes nothing. A record already matching versionID and the artifact
// set is returned unchanged.
func (m *Materializer) Materialize(instanceID, versionID string, results []models.ArtifactResult, root string) (*models.InstalledInstance, error) {
	if err := ValidateID(instanceID); err != nil {
		return nil, err
	}

	var incomplete models.IncompleteInstallError
	keys := make([]string, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			incomplete.FailedKeys = append(incomplete.FailedKeys, r.Key)
			incomplete.Errs = append(incomplete.Errs, r.Err)
			continue
		}
		keys = append(keys, r.Key)
	}
	if len(incomplete.FailedKeys) > 0 {
		incomplete.InstanceID = instanceID
		return nil, &incomplete
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	dir := filepath.Join(root, instanceID)
	existing, err := Load(root, instanceID)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	case existing.VersionID != versionID:
		return nil, &models.InstanceConflictError{
			InstanceID:       instanceID,
			InstalledVersion: existing.VersionID,
			RequestedVersion: versionID,
		}
	case slices.Equal(existing.Artifacts, keys):
		slog.Debug("instance already recorded", "instance", instanceID, "version", versionID)
		return existing, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating instance directory: %w", err)
	}
	if err := m.writeSettings(dir); err != nil {
		return nil, err
	}
	if m.opts.AcceptEULA && m.opts.Side == models.SideServer {
		if err := util.WriteFileAtomic(filepath.Join(dir, EULAFile), []byte("eula=true\n"), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", EULAFile, err)
		}
	}

	inst := &models.InstalledInstance{
		InstanceID:  instanceID,
		VersionID:   versionID,
		Artifacts:   keys,
		InstalledAt: m.opts.Now().UTC(),
	}
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding instance record: %w", err)
	}
	if err := util.WriteFileAtomic(filepath.Join(dir, RecordFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing instance record: %w", err)
	}

	slog.Info("instance installed", "instance", instanceID, "version", versionID, "artifacts", len(keys))
	return inst, nil
}

func (m *Materializer) writeSettings(dir string) error {
	if m.opts.Settings == nil {
		return nil
	}
	path := filepath.Join(dir, config.SettingsFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := config.SaveSettings(path, *m.opts.Settings); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Load reads the record of one instance. A missing record yields an
// error wrapping fs.ErrNotExist.
func Load(root, instanceID string) (*models.InstalledInstance, error) {
	if err := ValidateID(instanceID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(root, instanceID, RecordFile))
	if err != nil {
		return nil, fmt.Errorf("reading instance %s: %w", instanceID, err)
	}
	var inst models.InstalledInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("parsing instance %s: %w", instanceID, err)
	}
	return &inst, nil
}

// ListInstalled returns every recorded instance under root, sorted by
// instance ID. Directories without a record are skipped.
func ListInstalled(root string) ([]models.InstalledInstance, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading install root: %w", err)
	}

	var out []models.InstalledInstance
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		inst, err := Load(root, entry.Name())
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("skipping unreadable instance", "instance", entry.Name(), "error", err)
			}
			continue
		}
		out = append(out, *inst)
	}

	slices.SortFunc(out, func(a, b models.InstalledInstance) int {
		return strings.Compare(a.InstanceID, b.InstanceID)
	})
	return out, nil
}

// Remove deletes an instance directory. The record goes first so a
// partially removed instance is never listed.
func Remove(root, instanceID string) error {
	if err := ValidateID(instanceID); err != nil {
		return err
	}
	dir := filepath.Join(root, instanceID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("instance %s: %w", instanceID, err)
	}
	if err := os.Remove(filepath.Join(dir, RecordFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing instance record: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing instance %s: %w", instanceID, err)
	}
	slog.Info("instance removed", "instance", instanceID)
	return nil
}

// ValidateID rejects IDs that are not a single path element.
func ValidateID(instanceID string) error {
	if instanceID == "" || instanceID == "." || instanceID == ".." ||
		strings.ContainsAny(instanceID, `/\:`) || !filepath.IsLocal(instanceID) {
		return fmt.Errorf("invalid instance id %q", instanceID)
	}
	return nil
}
