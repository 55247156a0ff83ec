// Package config loads CLI settings from flags, an optional config file and
// CSDEMOSTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pable/go-cs-demostats/internal/log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Logging struct {
	Level log.Level `mapstructure:"level"`
	File  string    `mapstructure:"file"`
}

type Parse struct {
	Engine      string        `mapstructure:"engine"`
	Workers     int           `mapstructure:"workers"`
	OutDir      string        `mapstructure:"out"`
	MetricsFile string        `mapstructure:"metrics_file"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type Config struct {
	DB      string  `mapstructure:"db"`
	Logging Logging `mapstructure:"logging"`
	Parse   Parse   `mapstructure:"parse"`
}

// DefaultDir is where the database and config file live unless overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".csdemostats")
}

// New returns a viper instance with the defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()

	v.AddConfigPath(DefaultDir())
	v.AddConfigPath(".")
	v.SetConfigName("csdemostats")
	v.SetConfigType("yml")
	v.SetEnvPrefix("csdemostats")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaultConfig := map[string]any{
		"db":                 filepath.Join(DefaultDir(), "demostats.db"),
		"logging.level":      string(log.Info),
		"logging.file":       "",
		"parse.engine":       "native",
		"parse.workers":      4,
		"parse.out":          "",
		"parse.metrics_file": "",
		"parse.timeout":      "0s",
	}

	for configKey, value := range defaultConfig {
		v.SetDefault(configKey, value)
	}

	return v
}

// Read loads cfgFile, or the first csdemostats.yml found on the search path
// when cfgFile is empty. A missing default file is not an error.
func Read(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if errRead := v.ReadInConfig(); errRead != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(errRead, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", errRead)
		}
	}

	var cfg Config
	if errUnmarshal := v.Unmarshal(&cfg); errUnmarshal != nil {
		return Config{}, errors.Join(errUnmarshal, ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Parse.Engine {
	case "native", "demoinfocs":
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Parse.Engine)
	}

	if c.Parse.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}

	switch c.Logging.Level {
	case log.Debug, log.Info, log.Warn, log.Error:
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}

	return nil
}
