package models

import "github.com/spachava753/mcdl/internal/digest"

// RuleAction is the verdict of a matching rule.
type RuleAction string

const (
	RuleAllow    RuleAction = "allow"
	RuleDisallow RuleAction = "disallow"
)

// Rule gates an artifact on platform attributes. An empty Conditions
// map matches every platform.
type Rule struct {
	Action     RuleAction        `json:"action"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// ArtifactKind says where an artifact came from in the descriptor.
type ArtifactKind string

const (
	KindDownload ArtifactKind = "download"
	KindLibrary  ArtifactKind = "library"
	KindNative   ArtifactKind = "native"
)

// Side restricts an artifact to client or server installs.
type Side string

const (
	SideAny    Side = ""
	SideClient Side = "client"
	SideServer Side = "server"
)

// ArtifactRef describes a single downloadable file. Refs sharing a Key
// are the same logical artifact.
type ArtifactRef struct {
	Key   string        `json:"key"`
	URL   string        `json:"url"`
	Hash  digest.Digest `json:"hash"`
	Size  int64         `json:"size,omitempty"` // 0 = unknown
	Path  string        `json:"path"`           // relative to the instance root
	Rules []Rule        `json:"rules,omitempty"`
	Kind  ArtifactKind  `json:"kind"`
	Side  Side          `json:"side,omitempty"`
}

// JavaVersion is the runtime a version expects.
type JavaVersion struct {
	Component    string `json:"component,omitempty"`
	MajorVersion int    `json:"majorVersion"`
}

// VersionDescriptor is the metadata for one version. A descriptor with
// a ParentID is partial and inherits from its parent.
type VersionDescriptor struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parent_id,omitempty"`
	Type        ReleaseType   `json:"type"`
	MainClass   string        `json:"main_class,omitempty"`
	JavaVersion *JavaVersion  `json:"java_version,omitempty"`
	Artifacts   []ArtifactRef `json:"artifacts"`
}

// ResolvedDescriptor is a descriptor with its parent chain merged in.
// Chain lists the merged version IDs, child first.
type ResolvedDescriptor struct {
	VersionDescriptor
	Chain []string `json:"chain"`
}
