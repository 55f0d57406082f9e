// Package resolver merges a version's parent chain into a single
// immutable descriptor.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spachava753/mcdl/internal/models"
)

// Version aliases accepted by Resolve.
const (
	LatestRelease  = "latest"
	LatestSnapshot = "latest-snapshot"
)

// DescriptorFetcher loads the descriptor at a catalog location.
type DescriptorFetcher interface {
	FetchDescriptor(ctx context.Context, location string) (*models.VersionDescriptor, error)
}

// Resolve fetches versionID and every ancestor named by ParentID, then
// merges them child-over-parent. Parents are looked up in cat.
func Resolve(ctx context.Context, versionID string, cat *models.Catalog, fetcher DescriptorFetcher) (*models.ResolvedDescriptor, error) {
	id := Alias(versionID, cat)
	if id == "" {
		return nil, &models.UnknownVersionError{VersionID: versionID}
	}

	var (
		chain   []string
		descs   []*models.VersionDescriptor
		visited = map[string]bool{}
	)

	for next := id; next != ""; {
		if visited[next] {
			return nil, &models.CyclicInheritanceError{Chain: append(chain, next)}
		}
		visited[next] = true

		entry, ok := cat.Find(next)
		if !ok {
			if len(chain) == 0 {
				return nil, &models.UnknownVersionError{VersionID: next}
			}
			return nil, &models.UnknownVersionError{VersionID: next, Chain: slices.Clone(chain)}
		}
		chain = append(chain, next)

		slog.Debug("fetching descriptor", "version", next, "url", entry.URL)
		desc, err := fetcher.FetchDescriptor(ctx, entry.URL)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", next, err)
		}
		descs = append(descs, desc)
		next = desc.ParentID
	}

	// Fold from the root ancestor down to the requested version.
	merged := *descs[len(descs)-1]
	merged.Artifacts = slices.Clone(merged.Artifacts)
	for i := len(descs) - 2; i >= 0; i-- {
		merged = merge(merged, *descs[i])
	}
	merged.ID = id
	merged.ParentID = ""

	slog.Debug("resolved descriptor",
		"version", id,
		"chain", chain,
		"artifacts", len(merged.Artifacts))

	return &models.ResolvedDescriptor{VersionDescriptor: merged, Chain: chain}, nil
}

// Alias maps "latest" (or "") and "latest-snapshot" to the catalog's
// current IDs. Other IDs are returned unchanged.
func Alias(versionID string, cat *models.Catalog) string {
	switch versionID {
	case "", LatestRelease:
		return cat.Latest.Release
	case LatestSnapshot:
		return cat.Latest.Snapshot
	default:
		return versionID
	}
}

// merge overlays child on parent. Parent artifacts keep their
// position, replaced in place by a child artifact with the same key;
// child-only artifacts are appended in child order.
func merge(parent, child models.VersionDescriptor) models.VersionDescriptor {
	out := parent
	out.ID = child.ID
	out.ParentID = child.ParentID
	if child.Type != "" {
		out.Type = child.Type
	}
	if child.MainClass != "" {
		out.MainClass = child.MainClass
	}
	if child.JavaVersion != nil {
		out.JavaVersion = child.JavaVersion
	}

	childByKey := make(map[string]models.ArtifactRef, len(child.Artifacts))
	for _, a := range child.Artifacts {
		childByKey[a.Key] = a
	}

	out.Artifacts = make([]models.ArtifactRef, 0, len(parent.Artifacts)+len(child.Artifacts))
	seen := make(map[string]bool, len(parent.Artifacts))
	for _, a := range parent.Artifacts {
		if override, ok := childByKey[a.Key]; ok {
			a = override
		}
		out.Artifacts = append(out.Artifacts, a)
		seen[a.Key] = true
	}
	for _, a := range child.Artifacts {
		if seen[a.Key] {
			continue
		}
		out.Artifacts = append(out.Artifacts, a)
		seen[a.Key] = true
	}
	return out
}
