package provisor

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/provisor/provisor/service/quota"
	"github.com/provisor/provisor/service/supervisor"
)

// Config is a serialisable representation of the service configuration. It can
// be populated from JSON or YAML. The zero-value is useful; all nested fields
// inherit their package defaults.
type Config struct {
	// StoreBaseURL selects the file-backed process store when set; otherwise
	// the in-memory store is used.
	StoreBaseURL string `json:"storeBaseURL,omitempty" yaml:"storeBaseURL,omitempty"`

	Supervisor supervisor.Settings `json:"supervisor" yaml:"supervisor"`

	// Quota enables the remote free-space pre-check when set.
	Quota *quota.Settings `json:"quota,omitempty" yaml:"quota,omitempty"`
}

// DefaultConfig returns a Config populated with the same default values the
// constructors use. Callers may modify the returned struct before passing it
// to New.
func DefaultConfig() *Config {
	return &Config{
		Supervisor: supervisor.DefaultSettings(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Supervisor.Validate(); err != nil {
		return err
	}
	if c.Quota != nil {
		if c.Quota.Workdir == "" {
			return fmt.Errorf("quota.workdir is required")
		}
		if c.Quota.MinFreeSpace <= 0 {
			return fmt.Errorf("quota.minFreeSpace must be > 0")
		}
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) configuration from the supplied URL and
// overlays it onto the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
