// Package version classifies game version numbers and parses the
// install specification accepted on the command line.
package version

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the shape of a version number.
type Kind int

const (
	KindRelease Kind = iota
	KindPreRelease
	KindSnapshot
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindRelease:
		return "release"
	case KindPreRelease:
		return "pre-release"
	case KindSnapshot:
		return "snapshot"
	default:
		return "other"
	}
}

var (
	releaseRe    = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?$`)
	preReleaseRe = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?-((?:pre|rc)\d+)$`)
	snapshotRe   = regexp.MustCompile(`^(\d{2})w(\d{2})([a-z])$`)
	otherRe      = regexp.MustCompile(`^[A-Za-z0-9._\- ]{4,}$`)
)

// Number is a parsed version number.
type Number struct {
	Raw  string
	Kind Kind

	// Release and pre-release
	Major, Minor, Patch int
	Pre                 string // "pre1", "rc2"

	// Snapshot
	Year, Week int
	Iteration  string
}

// Parse classifies s. Strings matching no known shape are KindOther
// when they are at least four characters of [A-Za-z0-9._- ].
func Parse(s string) (Number, error) {
	if m := preReleaseRe.FindStringSubmatch(s); m != nil {
		n := Number{Raw: s, Kind: KindPreRelease, Pre: m[4]}
		n.Major, n.Minor, n.Patch = atoi(m[1]), atoi(m[2]), atoi(m[3])
		return n, nil
	}
	if m := releaseRe.FindStringSubmatch(s); m != nil {
		n := Number{Raw: s, Kind: KindRelease}
		n.Major, n.Minor, n.Patch = atoi(m[1]), atoi(m[2]), atoi(m[3])
		return n, nil
	}
	if m := snapshotRe.FindStringSubmatch(s); m != nil {
		return Number{Raw: s, Kind: KindSnapshot, Year: atoi(m[1]), Week: atoi(m[2]), Iteration: m[3]}, nil
	}
	if otherRe.MatchString(s) {
		return Number{Raw: s, Kind: KindOther}, nil
	}
	return Number{}, fmt.Errorf("invalid version number %q", s)
}

// Classify returns the kind of s, treating unparseable input as KindOther.
func Classify(s string) Kind {
	n, err := Parse(s)
	if err != nil {
		return KindOther
	}
	return n.Kind
}

// String returns the canonical form; a zero patch is omitted.
func (n Number) String() string {
	switch n.Kind {
	case KindRelease:
		return n.release()
	case KindPreRelease:
		return n.release() + "-" + n.Pre
	case KindSnapshot:
		return fmt.Sprintf("%02dw%02d%s", n.Year, n.Week, n.Iteration)
	default:
		return n.Raw
	}
}

func (n Number) release() string {
	if n.Patch == 0 {
		return fmt.Sprintf("%d.%d", n.Major, n.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", n.Major, n.Minor, n.Patch)
}

// Compare orders two numbers of the same kind. Numbers of different
// kinds are ordered by kind.
func Compare(a, b Number) int {
	if a.Kind != b.Kind {
		return cmp.Compare(a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindRelease, KindPreRelease:
		if c := cmp.Compare(a.Major, b.Major); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Patch, b.Patch); c != 0 {
			return c
		}
		return comparePre(a.Pre, b.Pre)
	case KindSnapshot:
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Week, b.Week); c != 0 {
			return c
		}
		return strings.Compare(a.Iteration, b.Iteration)
	default:
		return strings.Compare(a.Raw, b.Raw)
	}
}

// comparePre orders pre-releases before release candidates, then by number.
func comparePre(a, b string) int {
	split := func(s string) (int, int) {
		if rest, ok := strings.CutPrefix(s, "rc"); ok {
			return 1, atoi(rest)
		}
		return 0, atoi(strings.TrimPrefix(s, "pre"))
	}
	ak, an := split(a)
	bk, bn := split(b)
	if c := cmp.Compare(ak, bk); c != 0 {
		return c
	}
	return cmp.Compare(an, bn)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
