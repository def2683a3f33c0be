package sync

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type ConfigFile struct {
	Name   string
	Reader io.Reader
	Length int
}

// DefaultsConfigFile returns the built in defaults, loaded before any user config.
func DefaultsConfigFile() ConfigFile {
	return ConfigFile{
		Name:   "defaults.yaml",
		Reader: bytes.NewReader(defaultsYAML),
		Length: len(defaultsYAML),
	}
}

// ReadConfigFile reads a config file from disk.
func ReadConfigFile(name string) (ConfigFile, error) {
	var result ConfigFile
	b, err := os.ReadFile(name)
	if err != nil {
		return result, fmt.Errorf("failed to read config file %s: %w", name, err)
	}
	result.Name = name
	result.Reader = bytes.NewReader(b)
	result.Length = len(b)
	return result, nil
}

// ConfigFileFromString wraps inline YAML as a ConfigFile.
func ConfigFileFromString(name, s string) ConfigFile {
	return ConfigFile{Name: name, Reader: bytes.NewReader([]byte(s)), Length: len(s)}
}
