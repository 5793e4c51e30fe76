package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xupit3r/tilemm/internal/fill"
	"github.com/xupit3r/tilemm/internal/matrix"
)

// Config represents the application configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Sparse  SparseConfig  `mapstructure:"sparse" yaml:"sparse"`
	Fill    FillConfig    `mapstructure:"fill" yaml:"fill"`
	Verify  VerifyConfig  `mapstructure:"verify" yaml:"verify"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type EngineConfig struct {
	Size           int  `mapstructure:"size" yaml:"size"`
	Tile           int  `mapstructure:"tile" yaml:"tile"`
	Threads        int  `mapstructure:"threads" yaml:"threads"`
	FlushToZero    bool `mapstructure:"flush_to_zero" yaml:"flush_to_zero"`
	MemoryBudgetMB int  `mapstructure:"memory_budget_mb" yaml:"memory_budget_mb"`
}

type SparseConfig struct {
	InnerThreshold int `mapstructure:"inner_threshold" yaml:"inner_threshold"`
	InnerWorkers   int `mapstructure:"inner_workers" yaml:"inner_workers"`
}

type FillConfig struct {
	A    string `mapstructure:"a" yaml:"a"`
	B    string `mapstructure:"b" yaml:"b"`
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

type VerifyConfig struct {
	Reference string  `mapstructure:"reference" yaml:"reference"`
	RTol      float64 `mapstructure:"rtol" yaml:"rtol"`
	ATol      float64 `mapstructure:"atol" yaml:"atol"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// Reference implementations accepted by verify.reference.
var References = []string{"naive", "blas", "none"}

// Log formats accepted by logging.format.
var LogFormats = []string{"text", "json"}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Size:        512,
			Tile:        32,
			Threads:     16,
			FlushToZero: true,
		},
		Sparse: SparseConfig{
			InnerThreshold: 0,
			InnerWorkers:   4,
		},
		Fill: FillConfig{
			A:    fill.Stripes7,
			B:    fill.Ramp,
			Seed: 145,
		},
		Verify: VerifyConfig{
			Reference: "naive",
			RTol:      1e-4,
			ATol:      1e-3,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Format:  "text",
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults. Flags maps
// configuration keys to command-line flags; a flag only overrides the file and
// environment when it was set explicitly.
func Load(cfgFile string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tilemm"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TILEMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid. Every failure wraps
// matrix.ErrConfiguration.
func (c *Config) Validate() error {
	e := c.Engine
	if e.Size <= 0 {
		return fmt.Errorf("%w: engine.size must be positive, got %d", matrix.ErrConfiguration, e.Size)
	}
	if e.Tile <= 0 {
		return fmt.Errorf("%w: engine.tile must be positive, got %d", matrix.ErrConfiguration, e.Tile)
	}
	if e.Size%e.Tile != 0 {
		return fmt.Errorf("%w: engine.size %d is not a multiple of engine.tile %d",
			matrix.ErrConfiguration, e.Size, e.Tile)
	}
	if e.Threads <= 0 {
		return fmt.Errorf("%w: engine.threads must be positive, got %d", matrix.ErrConfiguration, e.Threads)
	}
	if e.MemoryBudgetMB < 0 {
		return fmt.Errorf("%w: engine.memory_budget_mb must not be negative", matrix.ErrConfiguration)
	}

	if c.Sparse.InnerThreshold < 0 {
		return fmt.Errorf("%w: sparse.inner_threshold must not be negative", matrix.ErrConfiguration)
	}
	if c.Sparse.InnerWorkers <= 0 {
		return fmt.Errorf("%w: sparse.inner_workers must be positive", matrix.ErrConfiguration)
	}

	for _, name := range []string{c.Fill.A, c.Fill.B} {
		if !lo.Contains(fill.Names(), name) {
			return fmt.Errorf("%w: unknown fill pattern %q, must be one of: %v",
				matrix.ErrConfiguration, name, fill.Names())
		}
	}

	if !lo.Contains(References, c.Verify.Reference) {
		return fmt.Errorf("%w: verify.reference must be one of: %v", matrix.ErrConfiguration, References)
	}
	if c.Verify.RTol < 0 || c.Verify.ATol < 0 {
		return fmt.Errorf("%w: verify tolerances must not be negative", matrix.ErrConfiguration)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !lo.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("%w: logging.level must be one of: %v", matrix.ErrConfiguration, validLevels)
	}
	if !lo.Contains(LogFormats, c.Logging.Format) {
		return fmt.Errorf("%w: logging.format must be one of: %v", matrix.ErrConfiguration, LogFormats)
	}

	return nil
}

// MemoryBudgetBytes returns the configured accumulator budget in bytes, or 0
// when the host's available memory should be used.
func (c *Config) MemoryBudgetBytes() int64 {
	return int64(c.Engine.MemoryBudgetMB) * 1024 * 1024
}

// YAML renders the configuration as it would appear in a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.size", cfg.Engine.Size)
	v.SetDefault("engine.tile", cfg.Engine.Tile)
	v.SetDefault("engine.threads", cfg.Engine.Threads)
	v.SetDefault("engine.flush_to_zero", cfg.Engine.FlushToZero)
	v.SetDefault("engine.memory_budget_mb", cfg.Engine.MemoryBudgetMB)

	v.SetDefault("sparse.inner_threshold", cfg.Sparse.InnerThreshold)
	v.SetDefault("sparse.inner_workers", cfg.Sparse.InnerWorkers)

	v.SetDefault("fill.a", cfg.Fill.A)
	v.SetDefault("fill.b", cfg.Fill.B)
	v.SetDefault("fill.seed", cfg.Fill.Seed)

	v.SetDefault("verify.reference", cfg.Verify.Reference)
	v.SetDefault("verify.rtol", cfg.Verify.RTol)
	v.SetDefault("verify.atol", cfg.Verify.ATol)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
