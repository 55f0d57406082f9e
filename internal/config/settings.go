package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/mcdl/internal/models"
	"github.com/spachava753/mcdl/internal/util"
)

// SettingsFile is the per-instance settings file name.
const SettingsFile = "settings.toml"

// DefaultSettings returns InstanceSettings for a new instance.
func DefaultSettings(javaMajor int, ic models.InstanceConfig) (models.InstanceSettings, error) {
	if javaMajor == 0 {
		javaMajor = 8
	}
	mb, err := util.ParseMemory(ic.Memory)
	if err != nil {
		return models.InstanceSettings{}, fmt.Errorf("parsing memory %q: %w", ic.Memory, err)
	}

	return models.InstanceSettings{
		Java: models.JavaSettings{
			Version:  javaMajor,
			MemoryMB: mb,
			Args:     append([]string{}, ic.JVMArgs...),
		},
		Server: models.ServerSettings{
			Jar:  "server.jar",
			Args: append([]string{"nogui"}, ic.ServerArgs...),
		},
	}, nil
}

// LoadSettings loads and parses a settings.toml file.
func LoadSettings(path string) (models.InstanceSettings, error) {
	var s models.InstanceSettings

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading %s: %w", SettingsFile, err)
	}

	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return s, fmt.Errorf("parsing %s: %w", SettingsFile, err)
	}

	// Handle legacy 'memory' field if 'memory_mb' is not explicitly set
	if !md.IsDefined("java", "memory_mb") && md.IsDefined("java", "memory") {
		mb, err := util.ParseMemory(s.Java.Memory)
		if err != nil {
			return s, fmt.Errorf("parsing memory %q: %w", s.Java.Memory, err)
		}
		s.Java.MemoryMB = mb
	}

	return s, nil
}

// SaveSettings writes settings to path, replacing any existing file.
func SaveSettings(path string, s models.InstanceSettings) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding %s: %w", SettingsFile, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	return util.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// JVMArgs returns the java command line arguments for an instance,
// including the heap limit derived from MemoryMB.
func JVMArgs(s models.InstanceSettings) []string {
	var args []string
	if s.Java.MemoryMB > 0 {
		args = append(args, fmt.Sprintf("-Xmx%dM", s.Java.MemoryMB))
	}
	args = append(args, s.Java.Args...)
	return append(args, "-jar", s.Server.Jar)
}
