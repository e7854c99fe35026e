// Package config holds the settings of a sync run. They are read once from
// the environment and command-line flags and then passed explicitly to the
// components that need them.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/petal-labs/groovesync/loader"
)

// Viper keys.
const (
	KeyAPIURL      = "api_url"
	KeyContextID   = "context_id"
	KeyGroovesPath = "grooves_path"
	KeyFilePattern = "file_pattern"
	KeyOTLP        = "otlp_endpoint"
)

// Environment variables read for each key.
const (
	EnvAPIURL      = "GROOVE_API_URL"
	EnvContextID   = "USER_CONTEXT_ID"
	EnvGroovesPath = "GROOVES_PATH"
	EnvFilePattern = "FILE_PATTERN"

	// EnvOTLPEndpoint and EnvOTLPTracesEndpoint are the standard exporter
	// variables; either one turns on trace export.
	EnvOTLPEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPTracesEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
)

// Command-line flags overriding the environment.
const (
	FlagAPIURL      = "api-url"
	FlagContextID   = "context-id"
	FlagGroovesPath = "path"
	FlagFilePattern = "pattern"
)

// DefaultGroovesPath is the directory searched when GROOVES_PATH is unset.
const DefaultGroovesPath = ".grooves"

// ErrMissingRequired is returned when a required setting has no value.
var ErrMissingRequired = errors.New("missing required configuration")

// Config is the read-only configuration of one run.
type Config struct {
	// APIURL is the registry base URL without trailing slashes.
	APIURL string
	// ContextID scopes every groove pushed in this run.
	ContextID string
	// GroovesPath is the root directory for discovery.
	GroovesPath string
	// FilePattern is the discovery glob relative to GroovesPath.
	FilePattern string
	// TracingEnabled is set when an OTLP endpoint is configured.
	TracingEnabled bool
}

// NewViper returns a viper instance with defaults and environment bindings
// for every key.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyGroovesPath, DefaultGroovesPath)
	v.SetDefault(KeyFilePattern, loader.DefaultPattern)
	_ = v.BindEnv(KeyAPIURL, EnvAPIURL)
	_ = v.BindEnv(KeyContextID, EnvContextID)
	_ = v.BindEnv(KeyGroovesPath, EnvGroovesPath)
	_ = v.BindEnv(KeyFilePattern, EnvFilePattern)
	_ = v.BindEnv(KeyOTLP, EnvOTLPEndpoint, EnvOTLPTracesEndpoint)
	return v
}

// RegisterFlags defines every configuration flag on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	RegisterRemoteFlags(flags)
	RegisterDiscoveryFlags(flags)
}

// RegisterRemoteFlags defines the registry flags on flags.
func RegisterRemoteFlags(flags *pflag.FlagSet) {
	flags.String(FlagAPIURL, "", "Groove registry base URL (env "+EnvAPIURL+")")
	flags.String(FlagContextID, "", "Context identifier grooves are registered under (env "+EnvContextID+")")
}

// RegisterDiscoveryFlags defines the file discovery flags on flags.
func RegisterDiscoveryFlags(flags *pflag.FlagSet) {
	flags.String(FlagGroovesPath, DefaultGroovesPath, "Root directory searched for groove files (env "+EnvGroovesPath+")")
	flags.String(FlagFilePattern, loader.DefaultPattern, "Glob matched below the root, supports ** and {a,b} (env "+EnvFilePattern+")")
}

// BindFlags binds whichever configuration flags are defined on flags to v.
// A flag set on the command line takes precedence over the environment.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		KeyAPIURL:      FlagAPIURL,
		KeyContextID:   FlagContextID,
		KeyGroovesPath: FlagGroovesPath,
		KeyFilePattern: FlagFilePattern,
	}
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load materializes and validates the full configuration of a sync run.
func Load(v *viper.Viper) (Config, error) {
	return load(v, true)
}

// LoadLocal materializes only the discovery settings; the registry URL and
// context are not required.
func LoadLocal(v *viper.Viper) (Config, error) {
	return load(v, false)
}

func load(v *viper.Viper, requireRemote bool) (Config, error) {
	cfg := Config{
		APIURL:      strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		ContextID:   strings.TrimSpace(v.GetString(KeyContextID)),
		GroovesPath: strings.TrimSpace(v.GetString(KeyGroovesPath)),
		FilePattern: strings.TrimSpace(v.GetString(KeyFilePattern)),

		TracingEnabled: strings.TrimSpace(v.GetString(KeyOTLP)) != "",
	}
	if cfg.GroovesPath == "" {
		cfg.GroovesPath = DefaultGroovesPath
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = loader.DefaultPattern
	}

	if requireRemote {
		var missing []string
		if cfg.APIURL == "" {
			missing = append(missing, EnvAPIURL+" (--"+FlagAPIURL+")")
		}
		if cfg.ContextID == "" {
			missing = append(missing, EnvContextID+" (--"+FlagContextID+")")
		}
		if len(missing) > 0 {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
		}
		if err := validateAPIURL(cfg.APIURL); err != nil {
			return Config{}, err
		}
	}

	if err := loader.ValidatePattern(cfg.FilePattern); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvAPIURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: want an absolute http(s) URL", EnvAPIURL, raw)
	}
	return nil
}
