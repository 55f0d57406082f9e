package models

// Config is the parsed installer configuration (config.yaml).
type Config struct {
	InstallRoot    string         `yaml:"install_root" json:"install_root"`
	CacheDir       string         `yaml:"cache_dir" json:"cache_dir"`
	ManifestURL    string         `yaml:"manifest_url" json:"manifest_url"`
	HashAlgorithm  string         `yaml:"hash_algorithm" json:"hash_algorithm"`
	Concurrency    int            `yaml:"concurrency" json:"concurrency"`
	HTTPTimeoutSec float64        `yaml:"http_timeout_sec" json:"http_timeout_sec"`
	CacheTTLSec    float64        `yaml:"cache_ttl_sec" json:"cache_ttl_sec"`
	Side           Side           `yaml:"side" json:"side"`
	AcceptEULA     bool           `yaml:"accept_eula" json:"accept_eula"`
	LogLevel       string         `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Retry          RetryConfig    `yaml:"retry,omitempty" json:"retry,omitempty"`
	Instance       InstanceConfig `yaml:"instance,omitempty" json:"instance,omitempty"`
}

type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" json:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms" json:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms" json:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier" json:"multiplier"`
}

// InstanceConfig seeds the settings.toml of new instances.
type InstanceConfig struct {
	Memory     string   `yaml:"memory,omitempty" json:"memory,omitempty"`
	JVMArgs    []string `yaml:"jvm_args,omitempty" json:"jvm_args,omitempty"`
	ServerArgs []string `yaml:"server_args,omitempty" json:"server_args,omitempty"`
}

// InstanceSettings is the per-instance settings.toml.
type InstanceSettings struct {
	Java   JavaSettings   `toml:"java"`
	Server ServerSettings `toml:"server"`
}

type JavaSettings struct {
	Version  int      `toml:"version"`
	Memory   string   `toml:"memory,omitempty"` // Deprecated: use MemoryMB
	MemoryMB int      `toml:"memory_mb,omitempty"`
	Args     []string `toml:"args"`
}

type ServerSettings struct {
	Jar       string   `toml:"jar"`
	MainClass string   `toml:"main_class,omitempty"`
	Args      []string `toml:"args"`
}
