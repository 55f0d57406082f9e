package models

import "time"

// ReleaseType classifies a catalog entry.
type ReleaseType string

const (
	ReleaseTypeRelease  ReleaseType = "release"
	ReleaseTypeSnapshot ReleaseType = "snapshot"
	ReleaseTypeOldBeta  ReleaseType = "old_beta"
	ReleaseTypeOldAlpha ReleaseType = "old_alpha"
)

// IsOther reports whether the type is neither a release nor a snapshot.
func (t ReleaseType) IsOther() bool {
	return t != ReleaseTypeRelease && t != ReleaseTypeSnapshot
}

// CatalogEntry is one version listed in the top-level manifest.
type CatalogEntry struct {
	ID          string      `json:"id"`
	Type        ReleaseType `json:"type"`
	URL         string      `json:"url"`
	Time        time.Time   `json:"time"`
	ReleaseTime time.Time   `json:"releaseTime"`
}

// LatestVersions names the newest release and snapshot.
type LatestVersions struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// Catalog is an immutable snapshot of the manifest. Versions are
// ordered most-recent-first.
type Catalog struct {
	Latest   LatestVersions `json:"latest"`
	Versions []CatalogEntry `json:"versions"`
}

// Find returns the entry with the given ID.
func (c *Catalog) Find(id string) (*CatalogEntry, bool) {
	for i := range c.Versions {
		if c.Versions[i].ID == id {
			return &c.Versions[i], true
		}
	}
	return nil, false
}
