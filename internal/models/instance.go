package models

import "time"

// InstalledInstance is the record written once an instance is fully
// installed.
type InstalledInstance struct {
	InstanceID  string    `json:"instance_id"`
	VersionID   string    `json:"version_id"`
	Artifacts   []string  `json:"installed_artifacts"` // sorted keys
	InstalledAt time.Time `json:"install_timestamp"`
}

// InstalledArtifact is a verified file on disk.
type InstalledArtifact struct {
	Key        string `json:"key"`
	Path       string `json:"path"` // absolute
	Size       int64  `json:"size"`
	Downloaded bool   `json:"downloaded"` // false when an existing file was reused
	Attempts   int    `json:"attempts"`
}

// ArtifactResult is the outcome for one artifact.
type ArtifactResult struct {
	Key      string
	Artifact *InstalledArtifact
	Err      error
}

// OK reports whether the artifact was installed.
func (r ArtifactResult) OK() bool {
	return r.Err == nil && r.Artifact != nil
}
