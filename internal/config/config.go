package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/synchronizer"
	"github.com/idilsaglam/weavetodo/internal/tracker"
	"github.com/idilsaglam/weavetodo/internal/wallet"
)

// EnvPrefix namespaces environment overrides: gateway.url is
// WEAVETODO_GATEWAY_URL.
const EnvPrefix = "WEAVETODO"

// WalletEnv points at the credential file, like the wallet.path key.
const WalletEnv = "WEAVETODO_WALLET"

type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	App     AppConfig     `mapstructure:"app"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
	Sync    SyncConfig    `mapstructure:"sync"`
}

type GatewayConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AppConfig struct {
	Tag string `mapstructure:"tag"`
}

type WalletConfig struct {
	Path string `mapstructure:"path"`
}

type TrackerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	Confirmations int           `mapstructure:"confirmations"`
}

type CacheConfig struct {
	// Dir holds the record cache; empty disables it.
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

type SyncConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// New returns a viper instance with defaults and environment bindings.
// Config files and flags are layered on by Load and BindFlags.
func New() (*viper.Viper, error) {
	v := viper.New()
	dir, err := wallet.Dir()
	if err != nil {
		dir = ".weavetodo"
	}

	v.SetDefault("gateway.url", arweave.DefaultGateway)
	v.SetDefault("gateway.timeout", time.Duration(0))
	v.SetDefault("app.tag", synchronizer.DefaultAppTag)
	v.SetDefault("wallet.path", "")
	v.SetDefault("tracker.interval", tracker.DefaultInterval)
	v.SetDefault("tracker.confirmations", tracker.DefaultThreshold)
	v.SetDefault("cache.dir", filepath.Join(dir, "cache"))
	v.SetDefault("log.file", filepath.Join(dir, "weavetodo.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.theme", "classic")
	v.SetDefault("sync.concurrency", synchronizer.DefaultConcurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("wallet.path", WalletEnv, EnvPrefix+"_WALLET_PATH"); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", WalletEnv, err)
	}
	return v, nil
}

// BindFlags lets command-line flags override every other source.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"gateway.url": "gateway",
		"app.tag":     "app-tag",
		"wallet.path": "wallet",
		"ui.theme":    "theme",
	} {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// Load reads file (or config.yaml in the weavetodo directory when file is
// empty and one exists) and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if dir, err := wallet.Dir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Gateway.URL) == "" {
		errs = append(errs, errors.New("gateway.url is empty"))
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("gateway.timeout is negative"))
	}
	if strings.TrimSpace(c.App.Tag) == "" {
		errs = append(errs, errors.New("app.tag is empty"))
	}
	if c.Tracker.Interval <= 0 {
		errs = append(errs, errors.New("tracker.interval must be positive"))
	}
	if c.Tracker.Confirmations < 1 {
		errs = append(errs, errors.New("tracker.confirmations must be at least 1"))
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, errors.New("sync.concurrency must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
