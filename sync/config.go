package sync

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"go.uber.org/config"
)

const (
	// DefaultBatchSize is the batch size HubSpot recommends for batch endpoints.
	DefaultBatchSize = 100
	// MaxBatchSize is the hard ceiling HubSpot accepts on batch endpoints.
	MaxBatchSize = 1000
)

type Config struct {
	ClientID     string     `yaml:"clientId"`
	ClientSecret string     `yaml:"clientSecret"`
	RefreshToken string     `yaml:"refreshToken"`
	ObjectType   ObjectType `yaml:"objectType"`
	BatchSize    int        `yaml:"batchSize"`
	// RecordRequests captures every HubSpot exchange to disk for use as test fixtures.
	RecordRequests bool `yaml:"recordRequests"`
	API            APISettings
}

type APISettings struct {
	Endpoint  string `yaml:"endpoint"`
	UserAgent string `yaml:"userAgent"`
}

// Credentials returns the OAuth credentials held by the config.
func (c Config) Credentials() Credentials {
	return Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RefreshToken: c.RefreshToken,
	}
}

// Validate checks everything that would otherwise fail at the first remote call.
func (c Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"clientId", c.ClientID},
		{"clientSecret", c.ClientSecret},
		{"refreshToken", c.RefreshToken},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Field: r.field, Reason: "must not be empty"}
		}
	}
	if _, err := c.ObjectType.Collection(); err != nil {
		return err
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return &ConfigurationError{
			Field:  "batchSize",
			Value:  fmt.Sprintf("%d", c.BatchSize),
			Reason: fmt.Sprintf("must be between 1 and %d", MaxBatchSize),
		}
	}
	if c.API.Endpoint != "" {
		u, err := url.Parse(c.API.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigurationError{Field: "api.endpoint", Value: c.API.Endpoint, Reason: "must be an absolute url", Err: err}
		}
	}
	return nil
}

// CompositeEnvVar resolves ${VAR} references in config files.
type CompositeEnvVar interface {
	LookupEnv(child string) (string, bool)
}

// OSEnvVar looks variables up in the process environment.
type OSEnvVar struct{}

func (OSEnvVar) LookupEnv(child string) (string, bool) {
	return os.LookupEnv(child)
}

// JSONCompositeEnvVar looks variables up in a single env var holding a JSON object,
// e.g. HUBSPOT_TARGET='{"HUBSPOT_CLIENT_SECRET":"..."}'.
type JSONCompositeEnvVar struct {
	Parent string
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent != "" {
		s := os.Getenv(c.Parent)
		if s != "" {
			m := make(map[string]string)
			err := json.Unmarshal([]byte(s), &m)
			if err == nil {
				v, exists := m[child]
				return v, exists
			}
		}
	}
	return "", false
}

// ChainedEnvVar tries each lookup in order.
type ChainedEnvVar []CompositeEnvVar

func (c ChainedEnvVar) LookupEnv(child string) (string, bool) {
	for _, e := range c {
		if v, ok := e.LookupEnv(child); ok {
			return v, true
		}
	}
	return "", false
}

type YAMLConfigUnmarshaler struct{}

// Unmarshal merges sources in order, later sources overriding earlier ones,
// expanding ${VAR} and ${VAR:default} through compev.
func (u YAMLConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...ConfigFile) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	options = append(options, config.Expand(compev.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	for _, field := range []struct {
		key    string
		target interface{}
	}{
		{"clientId", &result.ClientID},
		{"clientSecret", &result.ClientSecret},
		{"refreshToken", &result.RefreshToken},
		{"objectType", &result.ObjectType},
		{"batchSize", &result.BatchSize},
		{"recordRequests", &result.RecordRequests},
		{"api", &result.API},
	} {
		if !yaml.Get(field.key).HasValue() {
			continue
		}
		if err := yaml.Get(field.key).Populate(field.target); err != nil {
			return result, readError(field.key, err)
		}
	}
	if result.ObjectType != "" {
		objectType, err := ParseObjectType(string(result.ObjectType))
		if err != nil {
			return result, err
		}
		result.ObjectType = objectType
	}
	return result, nil
}
