// Package config loads tvb-hpc settings from YAML, .env files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tvbhpc/pkg/model"
	"tvbhpc/pkg/store"
	"tvbhpc/pkg/unicore"
)

// Config contains all tvb-hpc settings.
type Config struct {
	// RegistryURL is the UNICORE registry used to resolve site names.
	RegistryURL string `yaml:"registry_url"`

	// PollInterval is the pause between two job status requests.
	PollInterval time.Duration `yaml:"poll_interval"`

	// StorageName is the suffix identifying the home storage, and the name
	// of the shell variable pointing at it on the site.
	StorageName string `yaml:"storage_name"`

	Environment EnvironmentConfig     `yaml:"environment"`
	Sites       map[string]SiteConfig `yaml:"sites"`
	Auth        AuthConfig            `yaml:"auth"`
	Ledger      LedgerConfig          `yaml:"ledger"`
	Local       LocalConfig           `yaml:"local"`
	Logging     LoggingConfig         `yaml:"logging"`
}

// EnvironmentConfig describes the remote virtual environment.
type EnvironmentConfig struct {
	Dir           string `yaml:"dir"`
	Name          string `yaml:"name"`
	PythonVersion string `yaml:"python_version"`
	Package       string `yaml:"package"`

	// PackageVersion must match the version installed remotely; empty means
	// the version this binary was released with.
	PackageVersion string   `yaml:"package_version"`
	PipLibraries   []string `yaml:"pip_libraries"`
}

// SiteConfig holds per-site settings.
type SiteConfig struct {
	Module string `yaml:"module"`
}

// AuthConfig says where the bearer token comes from.
type AuthConfig struct {
	TokenEnv  string `yaml:"token_env"`
	TokenFile string `yaml:"token_file"`
}

// LedgerConfig selects the job ledger backend.
type LedgerConfig struct {
	Backend   string   `yaml:"backend"`
	Path      string   `yaml:"path"`
	Endpoints []string `yaml:"endpoints"`
}

// LocalConfig configures run-local.
type LocalConfig struct {
	Image string `yaml:"image"`
}

// LoggingConfig sets the diagnostic log level: warn (default), info, debug or trace.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Dir returns ~/.tvb-hpc.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tvb-hpc"
	}
	return filepath.Join(home, ".tvb-hpc")
}

// Default returns the settings used for the EBRAINS sites.
func Default() *Config {
	return &Config{
		RegistryURL:  unicore.DefaultRegistryURL,
		PollInterval: 5 * time.Second,
		StorageName:  "HOME",
		Environment: EnvironmentConfig{
			Dir:           "tvb_xircuits",
			Name:          "venv",
			PythonVersion: "3.9",
			Package:       "tvb-ext-xircuits",
			PipLibraries:  []string{"tvb-data"},
		},
		Sites: map[string]SiteConfig{
			"DAINT-CSCS": {Module: "cray-python"},
			"JUSUF":      {Module: "Python"},
		},
		Auth: AuthConfig{
			TokenEnv: "CLB_AUTH",
		},
		Ledger: LedgerConfig{
			Backend: store.BackendSQLite,
			Path:    filepath.Join(Dir(), "jobs.db"),
		},
		Local: LocalConfig{
			Image: "python:3.9",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads defaults, then the YAML file at path (~/.tvb-hpc/config.yaml
// when empty) if present, then a .env file in the working directory, then
// TVB_HPC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	// A missing .env is not an error.
	_ = godotenv.Load()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads a YAML configuration on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.Auth.TokenFile = expandHome(cfg.Auth.TokenFile)
	cfg.Ledger.Path = expandHome(cfg.Ledger.Path)
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RegistryURL == "" {
		return fmt.Errorf("registry_url must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.StorageName == "" {
		return fmt.Errorf("storage_name must be set")
	}
	if c.Environment.Dir == "" || c.Environment.Name == "" {
		return fmt.Errorf("environment dir and name must be set")
	}
	if strings.Contains(c.Environment.Name, "/") {
		return fmt.Errorf("environment name %q must not contain '/'", c.Environment.Name)
	}
	if c.Environment.Package == "" {
		return fmt.Errorf("environment package must be set")
	}

	switch c.Ledger.Backend {
	case "", store.BackendSQLite, store.BackendNone:
	case store.BackendEtcd:
		if len(c.Ledger.Endpoints) == 0 {
			return fmt.Errorf("ledger backend etcd needs endpoints")
		}
	default:
		return fmt.Errorf("invalid ledger backend: %s (valid: sqlite, etcd, none)", c.Ledger.Backend)
	}

	validLevels := map[string]bool{"": true, "warn": true, "info": true, "debug": true, "trace": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace)", c.Logging.Level)
	}
	return nil
}

// Layout returns the remote environment description. fallbackVersion is used
// when no package_version is configured.
func (c *Config) Layout(fallbackVersion string) model.EnvironmentLayout {
	v := c.Environment.PackageVersion
	if v == "" {
		v = fallbackVersion
	}
	return model.EnvironmentLayout{
		StorageName:    c.StorageName,
		EnvDir:         c.Environment.Dir,
		EnvName:        c.Environment.Name,
		PythonVersion:  c.Environment.PythonVersion,
		Package:        c.Environment.Package,
		PackageVersion: v,
		PipLibraries:   append([]string(nil), c.Environment.PipLibraries...),
	}
}

// SiteTable returns the immutable per-site lookup.
func (c *Config) SiteTable() model.SiteTable {
	modules := make(map[string]string, len(c.Sites))
	for name, s := range c.Sites {
		modules[name] = s.Module
	}
	return model.NewSiteTable(modules)
}

// LedgerOptions converts the ledger section for store.Open.
func (c *Config) LedgerOptions() store.Options {
	return store.Options{
		Backend:   c.Ledger.Backend,
		Path:      c.Ledger.Path,
		Endpoints: c.Ledger.Endpoints,
	}
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("TVB_HPC_REGISTRY_URL"); v != "" {
		c.RegistryURL = v
	}
	if v := os.Getenv("TVB_HPC_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TVB_HPC_POLL_INTERVAL %q: %w", v, err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("TVB_HPC_PACKAGE_VERSION"); v != "" {
		c.Environment.PackageVersion = v
	}
	if v := os.Getenv("TVB_HPC_TOKEN_FILE"); v != "" {
		c.Auth.TokenFile = v
	}
	if v := os.Getenv("TVB_HPC_LEDGER"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("TVB_HPC_ETCD_ENDPOINTS"); v != "" {
		c.Ledger.Endpoints = splitList(v)
	}
	if v := os.Getenv("TVB_HPC_LOCAL_IMAGE"); v != "" {
		c.Local.Image = v
	}
	if v := os.Getenv("TVB_HPC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
