package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// ConfigEnvVar names the optional env var holding a JSON object of settings
// that ${VAR} references in the config file resolve against first.
const ConfigEnvVar = "HUBSPOT_TARGET"

// configOptions holds optional configuration for LoadConfig.
type configOptions struct {
	compositeEnvVar CompositeEnvVar
}

// ConfigOption is a functional option for configuring LoadConfig.
type ConfigOption func(*configOptions)

// ConfigWithCompositeEnvVar overrides where ${VAR} references are resolved.
func ConfigWithCompositeEnvVar(compev CompositeEnvVar) ConfigOption {
	return func(o *configOptions) {
		o.compositeEnvVar = compev
	}
}

// DefaultConfigPath returns the XDG location of the config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "hubspot-target", "config.yaml")
}

// LoadConfig loads the built in defaults overlaid with files, in order, and validates the result.
func LoadConfig(files []ConfigFile, opts ...ConfigOption) (Config, error) {
	options := configOptions{
		compositeEnvVar: ChainedEnvVar{JSONCompositeEnvVar{Parent: ConfigEnvVar}, OSEnvVar{}},
	}
	for _, opt := range opts {
		opt(&options)
	}

	sources := append([]ConfigFile{DefaultsConfigFile()}, files...)
	result, err := YAMLConfigUnmarshaler{}.Unmarshal(options.compositeEnvVar, sources...)
	if err != nil {
		return result, fmt.Errorf("failed to load config %w", err)
	}
	if err := result.Validate(); err != nil {
		return result, err
	}
	return result, nil
}

// LoadConfigFromPath reads the config file at path, falling back to
// DefaultConfigPath when path is empty.
func LoadConfigFromPath(path string, opts ...ConfigOption) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, &ConfigurationError{Field: "config", Value: path, Reason: "config file not found", Err: err}
	}
	file, err := ReadConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	return LoadConfig([]ConfigFile{file}, opts...)
}
