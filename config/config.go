// Package config loads the poller's global settings and its endpoint
// descriptors.
//
// Global settings come from a JSON (or YAML) file through viper, with
// UPTIMEROBOT_-prefixed environment variables taking precedence. A .env file
// in the base directory can supply those variables. Endpoints
// live in a directory with one file per endpoint; see [LoadEndpoints].
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jpalmerr/uptimerobot"
	"github.com/jpalmerr/uptimerobot/internal/errs"
)

const (
	// EnvPrefix is prepended to every key when looking up overrides, e.g.
	// UPTIMEROBOT_SLEEPTIME.
	EnvPrefix = "UPTIMEROBOT"

	// LocalFile and DefaultFile are looked up in the base directory, in that
	// order, when no explicit path is given.
	LocalFile   = "config.json"
	DefaultFile = "config.default.json"

	// DotEnvFile in the base directory is loaded into the environment before
	// overrides are read. Variables already set win.
	DotEnvFile = ".env"

	defaultRequestTimeout = 15
	defaultSleepTime      = 15
	defaultRotateDelta    = 86400
	defaultRotateKeep     = 1209600
)

// Config is the global poller configuration. Durations are whole seconds.
type Config struct {
	RequestTimeout     int    `mapstructure:"request_timeout"`
	SleepTime          int    `mapstructure:"sleeptime"`
	LogRotateDelta     int    `mapstructure:"logrotate_delta"`
	LogRotateDeltaKeep int    `mapstructure:"logrotate_delta_keep"`
	LockFile           string `mapstructure:"lockfile"`
	ConfigDir          string `mapstructure:"configdir"`
	ErrorDir           string `mapstructure:"errordir"`
	LogDir             string `mapstructure:"logdir"`
	MaxConcurrency     int    `mapstructure:"max_concurrency"`
	Listen             string `mapstructure:"listen"`

	// Source is the file the settings were read from, empty for defaults only.
	Source string `mapstructure:"-"`
}

// Load reads the configuration with environment variable overrides.
//
// When path is empty, baseDir/config.json is used if present, then
// baseDir/config.default.json, then defaults only. An explicit path that
// cannot be read is an error. An empty baseDir means the working directory.
func Load(path, baseDir string) (*Config, error) {
	if err := loadDotEnv(baseDir); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, baseDir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	source := path
	if source == "" {
		found, err := findConfigFile(baseDir)
		if err != nil {
			return nil, err
		}
		source = found
	}

	if source != "" {
		v.SetConfigFile(source)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading config", errs.FieldPath(source))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigParseInvalidFormat, "unmarshalling config", errs.FieldPath(source))
	}
	cfg.Source = source

	if verrs := cfg.Validate(); len(verrs) > 0 {
		return nil, errs.Wrap(errors.Join(verrs...), errs.CodeConfigValidateInvalidValue, "validating config")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("sleeptime", defaultSleepTime)
	v.SetDefault("logrotate_delta", defaultRotateDelta)
	v.SetDefault("logrotate_delta_keep", defaultRotateKeep)
	v.SetDefault("lockfile", filepath.Join(os.TempDir(), "uptimerobot.lock"))
	v.SetDefault("configdir", filepath.Join(baseDir, "configs"))
	v.SetDefault("errordir", filepath.Join(baseDir, "errors"))
	v.SetDefault("logdir", filepath.Join(baseDir, "logs"))
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("listen", "")
}

func loadDotEnv(baseDir string) error {
	path := filepath.Join(baseDir, DotEnvFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errs.Wrap(err, errs.CodeConfigLoadReadFailure, "loading env file", errs.FieldPath(path))
	}
	return nil
}

func findConfigFile(baseDir string) (string, error) {
	for _, name := range []string{LocalFile, DefaultFile} {
		candidate := filepath.Join(baseDir, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", errs.Wrap(err, errs.CodeConfigLoadReadFailure, "locating config", errs.FieldPath(candidate))
		}
	}
	return "", nil
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var verrs []error

	positive := []struct {
		key   string
		value int
	}{
		{"request_timeout", c.RequestTimeout},
		{"sleeptime", c.SleepTime},
		{"logrotate_delta", c.LogRotateDelta},
		{"logrotate_delta_keep", c.LogRotateDeltaKeep},
	}
	for _, p := range positive {
		if p.value <= 0 {
			verrs = append(verrs, errs.Errorf(errs.CodeConfigValidateInvalidValue,
				"config: %s must be a positive number of seconds, got %d", p.key, p.value))
		}
	}

	if c.MaxConcurrency < 0 {
		verrs = append(verrs, errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"config: max_concurrency must not be negative, got %d", c.MaxConcurrency))
	}

	dirs := []struct {
		key   string
		value string
	}{
		{"lockfile", c.LockFile},
		{"configdir", c.ConfigDir},
		{"errordir", c.ErrorDir},
		{"logdir", c.LogDir},
	}
	for _, d := range dirs {
		if d.value == "" {
			verrs = append(verrs, errs.Errorf(errs.CodeConfigValidateInvalidValue, "config: %s must not be empty", d.key))
		}
	}

	if c.Listen != "" {
		verrs = append(verrs, validateListen(c.Listen)...)
	}

	return verrs
}

func validateListen(listen string) []error {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return []error{errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"config: listen must be a valid host:port address, got %q: %w", listen, err)}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"config: listen port must be a number, got %q", portStr)}
	}
	// port 0 picks a free port
	if port < 0 || port > 65535 {
		return []error{errs.Errorf(errs.CodeConfigValidateInvalidValue,
			"config: listen port must be between 0 and 65535, got %d", port)}
	}
	return nil
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return seconds(c.RequestTimeout)
}

func (c *Config) SleepTimeDuration() time.Duration {
	return seconds(c.SleepTime)
}

func (c *Config) RotateInterval() time.Duration {
	return seconds(c.LogRotateDelta)
}

func (c *Config) Retention() time.Duration {
	return seconds(c.LogRotateDeltaKeep)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Options maps the configuration onto monitor options. Endpoints are not
// included.
func (c *Config) Options() []uptimerobot.Option {
	return []uptimerobot.Option{
		uptimerobot.WithRequestTimeout(c.RequestTimeoutDuration()),
		uptimerobot.WithSleepTime(c.SleepTimeDuration()),
		uptimerobot.WithRotateInterval(c.RotateInterval()),
		uptimerobot.WithRetention(c.Retention()),
		uptimerobot.WithLogDir(c.LogDir),
		uptimerobot.WithErrorDir(c.ErrorDir),
		uptimerobot.WithMaxConcurrency(c.MaxConcurrency),
		uptimerobot.WithListenAddr(c.Listen),
	}
}
