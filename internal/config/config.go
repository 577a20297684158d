package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Environment variables read by the fetcher.
const (
	EnvToolCache    = "RUNNER_TOOL_CACHE"
	EnvArtifactURL  = "JBR_URL"
	EnvChecksumURL  = "JBR_CHECKSUM_URL"
	EnvGitHubOutput = "GITHUB_OUTPUT"
)

const (
	// DefaultOutputName is the key written to GITHUB_OUTPUT.
	DefaultOutputName = "jbrLocation"

	// DefaultLockTimeout bounds the wait for another job holding the cache entry.
	DefaultLockTimeout = 5 * time.Minute
)

// Config holds everything a single fetch needs.
type Config struct {
	// ToolCache is the runner tool cache directory the archive is stored in.
	ToolCache string `yaml:"tool_cache"`
	// ArtifactURL points at the runtime archive.
	ArtifactURL string `yaml:"artifact_url"`
	// ChecksumURL points at the manifest holding the archive's SHA-512.
	ChecksumURL string `yaml:"checksum_url"`
	// GitHubOutput is the optional key=value file the resolved path is appended to.
	GitHubOutput string `yaml:"github_output"`
	// OutputName is the key used for the GitHubOutput line.
	OutputName string `yaml:"output_name"`
	// LogLevel is the zap level name, empty keeps the default.
	LogLevel string `yaml:"log_level"`
	// Timeout is the total HTTP timeout per download, zero means none.
	Timeout time.Duration `yaml:"timeout"`
	// LockTimeout bounds how long to wait for the cache entry lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// LookupFunc resolves an environment variable, os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

var (
	// ErrMissingEnvironment is returned for every required variable left unset.
	ErrMissingEnvironment = errors.New("required environment variable is not set")

	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// Load reads optional settings from a YAML file. An empty path yields an empty Config.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if path == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// ApplyEnvironment overrides fields with non-empty environment values.
func (c *Config) ApplyEnvironment(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	for key, field := range map[string]*string{
		EnvToolCache:    &c.ToolCache,
		EnvArtifactURL:  &c.ArtifactURL,
		EnvChecksumURL:  &c.ChecksumURL,
		EnvGitHubOutput: &c.GitHubOutput,
	} {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
		}
	}
}

// Resolve loads the optional settings file, overlays the environment and validates the result.
func Resolve(path string, lookup LookupFunc) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvironment(lookup)

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing or malformed required value at once and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	var result *multierror.Error

	required := []struct {
		name  string
		value string
		isURL bool
	}{
		{name: EnvToolCache, value: cfg.ToolCache},
		{name: EnvArtifactURL, value: cfg.ArtifactURL, isURL: true},
		{name: EnvChecksumURL, value: cfg.ChecksumURL, isURL: true},
	}

	for _, r := range required {
		if r.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s: %w", r.name, ErrMissingEnvironment))
			continue
		}

		if !r.isURL {
			continue
		}

		if _, err := url.ParseRequestURI(r.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid %s: %w", r.name, err))
		}
	}

	if result != nil {
		result.ErrorFormat = joinErrors

		return result.ErrorOrNil()
	}

	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	return nil
}

// joinErrors renders a multierror on one line for CI logs.
func joinErrors(errs []error) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}

	return strings.Join(messages, "; ")
}
