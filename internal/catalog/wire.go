package catalog

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spachava753/mcdl/internal/digest"
	"github.com/spachava753/mcdl/internal/models"
)

// packageJSON is the version package served at a catalog entry's URL.
// Loader profiles (Fabric, Quilt) use the same shape with inheritsFrom
// set and maven-style libraries.
type packageJSON struct {
	ID           string              `json:"id"`
	InheritsFrom string              `json:"inheritsFrom"`
	Type         string              `json:"type"`
	MainClass    string              `json:"mainClass"`
	JavaVersion  *models.JavaVersion `json:"javaVersion"`
	Downloads    map[string]fileJSON `json:"downloads"`
	Libraries    []libraryJSON       `json:"libraries"`
}

type fileJSON struct {
	Path string `json:"path"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type libraryJSON struct {
	Name      string `json:"name"`
	URL       string `json:"url"`  // maven repository base, loader profiles only
	SHA1      string `json:"sha1"` // loader profiles only
	Size      int64  `json:"size"`
	Downloads *struct {
		Artifact    *fileJSON           `json:"artifact"`
		Classifiers map[string]fileJSON `json:"classifiers"`
	} `json:"downloads"`
	Rules   []ruleJSON        `json:"rules"`
	Natives map[string]string `json:"natives"`
}

type ruleJSON struct {
	Action string `json:"action"`
	OS     *struct {
		Name    string `json:"name"`
		Arch    string `json:"arch"`
		Version string `json:"version"`
	} `json:"os"`
	Features map[string]bool `json:"features"`
}

// nativeArch is substituted for ${arch} in native classifiers.
const nativeArch = "64"

func parseCatalog(data []byte) (*models.Catalog, error) {
	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog JSON: %w", err)
	}

	seen := make(map[string]bool, len(c.Versions))
	for i, v := range c.Versions {
		if v.ID == "" || v.URL == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id or url", i)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, v.ID)
		}
		seen[v.ID] = true
	}
	return &c, nil
}

// parseDescriptor decodes a version package into a VersionDescriptor.
// Bare sha1 fields are read with alg.
func parseDescriptor(location string, data []byte, alg digest.Algorithm) (*models.VersionDescriptor, error) {
	malformed := func(reason string, err error) error {
		return &models.MalformedDescriptorError{Location: location, Reason: reason, Err: err}
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, malformed("invalid JSON", err)
	}
	if pkg.ID == "" {
		return nil, malformed("missing id", nil)
	}

	desc := &models.VersionDescriptor{
		ID:          pkg.ID,
		ParentID:    pkg.InheritsFrom,
		Type:        models.ReleaseType(pkg.Type),
		MainClass:   pkg.MainClass,
		JavaVersion: pkg.JavaVersion,
	}

	names := make([]string, 0, len(pkg.Downloads))
	for name := range pkg.Downloads {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := pkg.Downloads[name]
		ref, err := fileRef(name, downloadPath(name), f, alg)
		if err != nil {
			return nil, malformed(fmt.Sprintf("download %q", name), err)
		}
		ref.Kind = models.KindDownload
		ref.Side = downloadSide(name)
		if name == "windows_server" {
			ref.Rules = []models.Rule{
				{Action: models.RuleDisallow},
				{Action: models.RuleAllow, Conditions: map[string]string{"os": "windows"}},
			}
		}
		desc.Artifacts = append(desc.Artifacts, ref)
	}

	for i, lib := range pkg.Libraries {
		refs, err := libraryRefs(lib, alg)
		if err != nil {
			return nil, malformed(fmt.Sprintf("library %d (%s)", i, lib.Name), err)
		}
		desc.Artifacts = append(desc.Artifacts, refs...)
	}

	return desc, nil
}

func downloadPath(name string) string {
	switch {
	case strings.HasSuffix(name, "_mappings"):
		return name + ".txt"
	case name == "windows_server":
		return name + ".exe"
	default:
		return name + ".jar"
	}
}

func downloadSide(name string) models.Side {
	switch {
	case strings.HasPrefix(name, "client"):
		return models.SideClient
	case strings.Contains(name, "server"):
		return models.SideServer
	default:
		return models.SideAny
	}
}

func fileRef(key, relPath string, f fileJSON, alg digest.Algorithm) (models.ArtifactRef, error) {
	if f.URL == "" {
		return models.ArtifactRef{}, fmt.Errorf("missing url")
	}
	if err := checkRelPath(relPath); err != nil {
		return models.ArtifactRef{}, err
	}
	hash, err := digest.Parse(f.SHA1, alg)
	if err != nil {
		return models.ArtifactRef{}, err
	}
	if f.Size < 0 {
		return models.ArtifactRef{}, fmt.Errorf("negative size %d", f.Size)
	}
	return models.ArtifactRef{
		Key:  key,
		URL:  f.URL,
		Hash: hash,
		Size: f.Size,
		Path: relPath,
	}, nil
}

func libraryRefs(lib libraryJSON, alg digest.Algorithm) ([]models.ArtifactRef, error) {
	if lib.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	rules, err := convertRules(lib.Rules)
	if err != nil {
		return nil, err
	}

	var refs []models.ArtifactRef

	switch {
	case lib.Downloads != nil && lib.Downloads.Artifact != nil:
		a := lib.Downloads.Artifact
		p := a.Path
		if p == "" {
			if p, err = mavenPath(lib.Name); err != nil {
				return nil, err
			}
		}
		ref, err := fileRef(lib.Name, path.Join("libraries", p), *a, alg)
		if err != nil {
			return nil, err
		}
		ref.Rules = rules
		refs = append(refs, ref)
	case lib.URL != "":
		p, err := mavenPath(lib.Name)
		if err != nil {
			return nil, err
		}
		f := fileJSON{SHA1: lib.SHA1, Size: lib.Size, URL: strings.TrimSuffix(lib.URL, "/") + "/" + p}
		ref, err := fileRef(lib.Name, path.Join("libraries", p), f, alg)
		if err != nil {
			return nil, err
		}
		ref.Rules = rules
		refs = append(refs, ref)
	}

	osNames := make([]string, 0, len(lib.Natives))
	for osName := range lib.Natives {
		osNames = append(osNames, osName)
	}
	sort.Strings(osNames)

	for _, osName := range osNames {
		classifier := strings.ReplaceAll(lib.Natives[osName], "${arch}", nativeArch)
		if lib.Downloads == nil {
			continue
		}
		f, ok := lib.Downloads.Classifiers[classifier]
		if !ok {
			continue
		}
		p := f.Path
		if p == "" {
			if p, err = mavenPath(lib.Name + ":" + classifier); err != nil {
				return nil, err
			}
		}
		ref, err := fileRef(lib.Name+":"+classifier, path.Join("libraries", p), f, alg)
		if err != nil {
			return nil, err
		}
		ref.Kind = models.KindNative
		ref.Side = models.SideClient
		ref.Rules = nativeRules(osName, rules)
		refs = append(refs, ref)
	}

	for i := range refs {
		if refs[i].Kind == "" {
			refs[i].Kind = models.KindLibrary
			refs[i].Side = models.SideClient
		}
	}
	return refs, nil
}

// convertRules maps catalog rules one-to-one onto models.Rule.
func convertRules(in []ruleJSON) ([]models.Rule, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]models.Rule, 0, len(in))
	for _, r := range in {
		action := models.RuleAction(r.Action)
		if action != models.RuleAllow && action != models.RuleDisallow {
			return nil, fmt.Errorf("unknown rule action %q", r.Action)
		}
		cond := map[string]string{}
		if r.OS != nil {
			if r.OS.Name != "" {
				cond["os"] = r.OS.Name
			}
			if r.OS.Arch != "" {
				cond["arch"] = r.OS.Arch
			}
			if r.OS.Version != "" {
				cond["os_version"] = r.OS.Version
			}
		}
		for name, v := range r.Features {
			cond["feature:"+name] = fmt.Sprint(v)
		}
		if len(cond) == 0 {
			cond = nil
		}
		out = append(out, models.Rule{Action: action, Conditions: cond})
	}
	return out, nil
}

// nativeRules restricts a native classifier to osName. Library rules
// naming another OS are dropped; the rest apply with os=osName added.
func nativeRules(osName string, libRules []models.Rule) []models.Rule {
	out := []models.Rule{
		{Action: models.RuleDisallow},
		{Action: models.RuleAllow, Conditions: map[string]string{"os": osName}},
	}
	for _, r := range libRules {
		if other, ok := r.Conditions["os"]; ok && other != osName {
			continue
		}
		cond := map[string]string{"os": osName}
		for k, v := range r.Conditions {
			cond[k] = v
		}
		out = append(out, models.Rule{Action: r.Action, Conditions: cond})
	}
	return out
}

// mavenPath converts group:artifact:version[:classifier][@ext] into a
// repository-relative path.
func mavenPath(coord string) (string, error) {
	ext := "jar"
	if base, e, ok := strings.Cut(coord, "@"); ok {
		coord, ext = base, e
	}
	parts := strings.Split(coord, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return "", fmt.Errorf("invalid maven coordinate %q", coord)
	}
	for _, p := range parts {
		if p == "" || strings.Contains(p, "/") || p == ".." {
			return "", fmt.Errorf("invalid maven coordinate %q", coord)
		}
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	file := artifact + "-" + version
	if len(parts) == 4 {
		file += "-" + parts[3]
	}
	return path.Join(strings.ReplaceAll(group, ".", "/"), artifact, version, file+"."+ext), nil
}

// checkRelPath rejects paths that would escape the instance root.
func checkRelPath(p string) error {
	if p == "" || path.IsAbs(p) || strings.HasPrefix(p, `\`) || strings.Contains(p, ":") {
		return fmt.Errorf("invalid artifact path %q", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("artifact path %q escapes the instance root", p)
	}
	return nil
}
