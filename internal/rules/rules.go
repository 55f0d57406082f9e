// Package rules decides which artifacts of a resolved descriptor apply
// to a target platform.
package rules

import (
	"log/slog"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/spachava753/mcdl/internal/models"
)

const featurePrefix = "feature:"

// Filter returns the artifacts of d that apply to p, in input order.
func Filter(d *models.ResolvedDescriptor, p models.Platform) []models.ArtifactRef {
	out := make([]models.ArtifactRef, 0, len(d.Artifacts))
	for _, a := range d.Artifacts {
		if a.Side != models.SideAny && p.Side != models.SideAny && a.Side != p.Side {
			continue
		}
		if !Allowed(a.Rules, p) {
			slog.Debug("artifact excluded by rules", "key", a.Key, "os", p.OS, "arch", p.Arch)
			continue
		}
		out = append(out, a)
	}
	return out
}

// Allowed evaluates rules in order. The last matching rule decides;
// when none match the artifact is allowed.
func Allowed(rules []models.Rule, p models.Platform) bool {
	allowed := true
	for _, r := range rules {
		if Matches(r, p) {
			allowed = r.Action == models.RuleAllow
		}
	}
	return allowed
}

// Matches reports whether every condition of r holds for p.
func Matches(r models.Rule, p models.Platform) bool {
	for attr, want := range r.Conditions {
		if !matchCondition(attr, want, p) {
			return false
		}
	}
	return true
}

func matchCondition(attr, want string, p models.Platform) bool {
	if want == "any" || want == "*" {
		return true
	}
	switch {
	case attr == "os":
		return strings.EqualFold(p.OS, want)
	case attr == "arch":
		return strings.EqualFold(p.Arch, want)
	case attr == "os_version":
		re, err := regexp.Compile(want)
		if err != nil {
			slog.Warn("invalid os_version pattern in rule", "pattern", want, "error", err)
			return false
		}
		return re.MatchString(p.OSVersion)
	case strings.HasPrefix(attr, featurePrefix):
		wantOn, err := strconv.ParseBool(want)
		if err != nil {
			return false
		}
		return p.Features[strings.TrimPrefix(attr, featurePrefix)] == wantOn
	default:
		// Unknown attributes never match.
		return false
	}
}

// Current returns the running platform using catalog OS and arch names.
func Current(side models.Side) models.Platform {
	return models.Platform{
		OS:   osName(runtime.GOOS),
		Arch: archName(runtime.GOARCH),
		Side: side,
	}
}

func osName(goos string) string {
	if goos == "darwin" {
		return "osx"
	}
	return goos
}

func archName(goarch string) string {
	switch goarch {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	default:
		return goarch
	}
}
