package models

// Platform is the target an artifact set is filtered for.
type Platform struct {
	OS        string          `yaml:"os" json:"os"`
	Arch      string          `yaml:"arch" json:"arch"`
	OSVersion string          `yaml:"os_version,omitempty" json:"os_version,omitempty"`
	Features  map[string]bool `yaml:"features,omitempty" json:"features,omitempty"`
	Side      Side            `yaml:"side,omitempty" json:"side,omitempty"`
}
