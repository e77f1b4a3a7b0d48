package host

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the host runtime configuration: the filesystem layout the
// directory entry points serve, and the wasm memory ceiling.
type Config struct {
	BaseDir       string `mapstructure:"base_dir"`
	ExtensionsDir string `mapstructure:"extensions_dir"`
	ConfigsDir    string `mapstructure:"configs_dir"`
	DataDir       string `mapstructure:"data_dir"`
	LogsDir       string `mapstructure:"logs_dir"`
	CacheDir      string `mapstructure:"cache_dir"`

	// MemoryLimitPages caps the core module's linear memory, in 64KiB
	// wasm pages. Zero means the runtime default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// DefaultConfig returns a layout rooted at the current directory.
func DefaultConfig() Config {
	cfg := Config{BaseDir: "."}
	cfg.fillDerived()
	return cfg
}

// LoadConfig reads the host configuration from path. Unset directories
// derive from base_dir.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("base_dir", ".")
	v.SetDefault("memory_limit_pages", 0)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) fillDerived() {
	derive := func(dst *string, name string) {
		if *dst == "" {
			*dst = filepath.Join(c.BaseDir, name)
		}
	}
	derive(&c.ExtensionsDir, "extensions")
	derive(&c.ConfigsDir, "configs")
	derive(&c.DataDir, "data")
	derive(&c.LogsDir, "logs")
	derive(&c.CacheDir, "cache")
}
