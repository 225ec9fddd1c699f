package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all agent configuration
type Config struct {
	// Persisted state store
	PrefsPath string `mapstructure:"prefs-path"`

	// Simulation workflow database (BoltDB, used by the simulate command)
	FSMDBPath string `mapstructure:"fsm-db-path"`

	// Device policy
	OfficialBuild        bool `mapstructure:"official-build"`
	HTTPDownloadsEnabled bool `mapstructure:"http-downloads-enabled"`

	// Identifies the partition slot the system booted from
	BootSlot int64 `mapstructure:"boot-slot"`

	// Defaults applied to synthetic responses in the simulate command
	MaxFailuresPerSource int   `mapstructure:"max-failures-per-source"`
	SimPayloadSize       int64 `mapstructure:"sim-payload-size"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("prefs-path", ".artifacts/prefs.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("official-build", true)
	viper.SetDefault("http-downloads-enabled", false)
	viper.SetDefault("boot-slot", 0)
	viper.SetDefault("max-failures-per-source", 10)
	viper.SetDefault("sim-payload-size", 64*1024*1024)

	// Environment variables (will be FLEETOTA_PREFS_PATH, etc.)
	viper.SetEnvPrefix("FLEETOTA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.fleetota")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.PrefsPath == "" {
		return fmt.Errorf("prefs-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.MaxFailuresPerSource < 1 {
		return fmt.Errorf("max-failures-per-source must be at least 1")
	}
	if c.SimPayloadSize <= 0 {
		return fmt.Errorf("sim-payload-size must be positive")
	}
	return nil
}

// DevicePolicy adapts the loaded configuration to the policy inputs the
// attempt state machine consults.
type DevicePolicy struct {
	cfg *Config
}

func (c *Config) Policy() *DevicePolicy {
	return &DevicePolicy{cfg: c}
}

func (p *DevicePolicy) HTTPDownloadsAllowed() bool {
	return p.cfg.HTTPDownloadsEnabled
}

func (p *DevicePolicy) IsOfficialBuild() bool {
	return p.cfg.OfficialBuild
}
