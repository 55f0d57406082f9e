package version

import (
	"fmt"
	"regexp"
	"strings"
)

// ServerKind is the server distribution to install.
type ServerKind string

const (
	Vanilla  ServerKind = "vanilla"
	Fabric   ServerKind = "fabric"
	Forge    ServerKind = "forge"
	NeoForge ServerKind = "neoforge"
	Paper    ServerKind = "paper"
)

// DefaultName is the instance name used when a spec omits one.
const DefaultName = "unnamed"

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseServerKind parses a kind name case-insensitively.
func ParseServerKind(s string) (ServerKind, error) {
	switch k := ServerKind(strings.ToLower(s)); k {
	case Vanilla, Fabric, Forge, NeoForge, Paper:
		return k, nil
	default:
		return "", fmt.Errorf("invalid server kind: %s", s)
	}
}

// Supported reports whether installs of this kind are implemented.
func (k ServerKind) Supported() bool {
	return k == Vanilla
}

// InstallSpec is a parsed "[version][:[name][:[kind]]]" argument. Empty
// fields take defaults: latest version, DefaultName, Vanilla.
type InstallSpec struct {
	Version string // "" means latest
	Name    string
	Named   bool // Name was given explicitly
	Kind    ServerKind
}

// ParseInstallSpec parses s.
func ParseInstallSpec(s string) (InstallSpec, error) {
	spec := InstallSpec{Name: DefaultName, Kind: Vanilla}

	parts := strings.SplitN(s, ":", 3)
	spec.Version = parts[0]
	if spec.Version != "" {
		if _, err := Parse(spec.Version); err != nil {
			return InstallSpec{}, fmt.Errorf("parsing install spec %q: %w", s, err)
		}
	}

	if len(parts) > 1 && parts[1] != "" {
		if !nameRe.MatchString(parts[1]) {
			return InstallSpec{}, fmt.Errorf("parsing install spec %q: name must match [a-zA-Z0-9_-]", s)
		}
		spec.Name = parts[1]
		spec.Named = true
	}

	if len(parts) > 2 && parts[2] != "" {
		kind, err := ParseServerKind(parts[2])
		if err != nil {
			return InstallSpec{}, fmt.Errorf("parsing install spec %q: %w", s, err)
		}
		spec.Kind = kind
	}

	return spec, nil
}

// String renders the spec in its parseable form.
func (s InstallSpec) String() string {
	return s.Version + ":" + s.Name + ":" + string(s.Kind)
}
