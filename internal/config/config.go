// Package config loads service configuration from YAML with environment
// overrides for deployment-specific settings.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration decodes YAML durations written either as strings ("2s", "500ms")
// or as integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "parse duration %q", s)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return errors.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Search holds the solver tunables exposed to operators.
type Search struct {
	Determinizations int      `yaml:"determinizations"`
	Workers          int      `yaml:"workers"`
	Budget           Duration `yaml:"budget"`
	Seed             int64    `yaml:"seed"`
	Depth            int      `yaml:"depth"`
	Samples          int      `yaml:"samples"`
	TauOpponent      float64  `yaml:"tau_opponent"`
	TauSelf          float64  `yaml:"tau_self"`
}

// Risk holds the posture thresholds.
type Risk struct {
	SecureThreshold float64 `yaml:"secure_threshold"`
	GambleThreshold float64 `yaml:"gamble_threshold"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	PostgresURL string `yaml:"postgres_url"`
	RedisAddr   string `yaml:"redis_addr"`
	MemoryPath  string `yaml:"memory_path"`
	UsagePath   string `yaml:"usage_path"`

	AdvisoryURL     string   `yaml:"advisory_url"`
	AdvisoryTimeout Duration `yaml:"advisory_timeout"`

	Search Search `yaml:"search"`
	Risk   Risk   `yaml:"risk"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		MemoryPath: "data/memory",
		Search: Search{
			Determinizations: 10,
			Workers:          4,
			Budget:           Duration(4 * time.Second),
			Seed:             1,
			Depth:            2,
			Samples:          6,
			TauOpponent:      0.25,
			TauSelf:          0.30,
		},
		Risk: Risk{
			SecureThreshold: 0.55,
			GambleThreshold: 0.45,
		},
		AdvisoryTimeout: Duration(500 * time.Millisecond),
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults stand.
		case err != nil:
			return cfg, errors.Wrapf(err, "read config %s", path)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides deployment settings from the environment. Tunables stay
// YAML-only.
func (c *Config) applyEnv() {
	if v := os.Getenv("VGC_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.PostgresURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("VGC_MEMORY_PATH"); v != "" {
		c.MemoryPath = v
	}
	if v := os.Getenv("VGC_USAGE_PATH"); v != "" {
		c.UsagePath = v
	}
	if v := os.Getenv("VGC_ADVISORY_URL"); v != "" {
		c.AdvisoryURL = v
	}
}
