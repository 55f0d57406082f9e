package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spachava753/mcdl/internal/models"
)

type fakeFetcher struct {
	descs map[string]*models.VersionDescriptor
	err   error
	calls []string
}

func (f *fakeFetcher) FetchDescriptor(_ context.Context, location string) (*models.VersionDescriptor, error) {
	f.calls = append(f.calls, location)
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.descs[location]
	if !ok {
		return nil, &models.DescriptorFetchError{Status: 404, Location: location}
	}
	return d, nil
}

func catalogOf(ids ...string) *models.Catalog {
	cat := &models.Catalog{}
	for _, id := range ids {
		cat.Versions = append(cat.Versions, models.CatalogEntry{ID: id, URL: "mem://" + id})
	}
	if len(ids) > 0 {
		cat.Latest.Release = ids[0]
	}
	return cat
}

func art(key, url string) models.ArtifactRef {
	return models.ArtifactRef{Key: key, URL: url, Path: key}
}

func keysAndURLs(arts []models.ArtifactRef) []string {
	var out []string
	for _, a := range arts {
		out = append(out, a.Key+"="+a.URL)
	}
	return out
}

func TestResolve_Chain(t *testing.T) {
	fetcher := &fakeFetcher{descs: map[string]*models.VersionDescriptor{
		"mem://A": {
			ID:        "A",
			ParentID:  "B",
			MainClass: "a.Main",
			Artifacts: []models.ArtifactRef{art("shared", "from-A"), art("only-a", "from-A")},
		},
		"mem://B": {
			ID:        "B",
			ParentID:  "C",
			Artifacts: []models.ArtifactRef{art("only-b", "from-B")},
		},
		"mem://C": {
			ID:          "C",
			Type:        models.ReleaseTypeRelease,
			MainClass:   "c.Main",
			JavaVersion: &models.JavaVersion{MajorVersion: 17},
			Artifacts:   []models.ArtifactRef{art("only-c", "from-C"), art("shared", "from-C")},
		},
	}}

	got, err := Resolve(context.Background(), "A", catalogOf("A", "B", "C"), fetcher)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{"only-c=from-C", "shared=from-A", "only-b=from-B", "only-a=from-A"}
	if arts := keysAndURLs(got.Artifacts); !reflect.DeepEqual(arts, want) {
		t.Errorf("artifacts = %v, want %v", arts, want)
	}
	if !reflect.DeepEqual(got.Chain, []string{"A", "B", "C"}) {
		t.Errorf("chain = %v", got.Chain)
	}
	if got.ID != "A" || got.ParentID != "" {
		t.Errorf("id=%q parent=%q", got.ID, got.ParentID)
	}
	if got.MainClass != "a.Main" {
		t.Errorf("MainClass = %q, want child value", got.MainClass)
	}
	if got.Type != models.ReleaseTypeRelease || got.JavaVersion == nil || got.JavaVersion.MajorVersion != 17 {
		t.Errorf("expected inherited type and java version, got %q %+v", got.Type, got.JavaVersion)
	}

	// The fetched descriptors are left untouched.
	if len(fetcher.descs["mem://C"].Artifacts) != 2 {
		t.Error("root descriptor was mutated")
	}
}

func TestResolve_Cycle(t *testing.T) {
	fetcher := &fakeFetcher{descs: map[string]*models.VersionDescriptor{
		"mem://A": {ID: "A", ParentID: "B"},
		"mem://B": {ID: "B", ParentID: "A"},
	}}

	_, err := Resolve(context.Background(), "A", catalogOf("A", "B"), fetcher)
	var cyclic *models.CyclicInheritanceError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicInheritanceError, got %v", err)
	}
	if want := []string{"A", "B", "A"}; !reflect.DeepEqual(cyclic.Chain, want) {
		t.Errorf("chain = %v, want %v", cyclic.Chain, want)
	}
}

func TestResolve_UnknownVersion(t *testing.T) {
	tests := []struct {
		name      string
		versionID string
		descs     map[string]*models.VersionDescriptor
		wantID    string
		wantChain []string
	}{
		{
			name:      "start missing",
			versionID: "Z",
			wantID:    "Z",
		},
		{
			name:      "parent missing",
			versionID: "A",
			descs:     map[string]*models.VersionDescriptor{"mem://A": {ID: "A", ParentID: "gone"}},
			wantID:    "gone",
			wantChain: []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(context.Background(), tt.versionID, catalogOf("A"), &fakeFetcher{descs: tt.descs})
			var unknown *models.UnknownVersionError
			if !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownVersionError, got %v", err)
			}
			if unknown.VersionID != tt.wantID || !reflect.DeepEqual(unknown.Chain, tt.wantChain) {
				t.Errorf("got %+v", unknown)
			}
		})
	}
}

func TestResolve_FetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: &models.DescriptorFetchError{Status: 500, Location: "mem://A"}}

	_, err := Resolve(context.Background(), "A", catalogOf("A"), fetcher)
	var fetchErr *models.DescriptorFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected DescriptorFetchError, got %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("expected a single fetch, got %d", len(fetcher.calls))
	}
}

func TestAlias(t *testing.T) {
	cat := &models.Catalog{Latest: models.LatestVersions{Release: "1.20.1", Snapshot: "23w31a"}}
	tests := map[string]string{
		"":                "1.20.1",
		"latest":          "1.20.1",
		"latest-snapshot": "23w31a",
		"1.19.4":          "1.19.4",
	}
	for in, want := range tests {
		if got := Alias(in, cat); got != want {
			t.Errorf("Alias(%q) = %q, want %q", in, got, want)
		}
	}
}
