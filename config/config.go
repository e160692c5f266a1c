// Package config loads lendingd settings from YAML and the environment.
package config

import (
	"os"
	"time"

	"github.com/DomeLiquid/lending/core"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageSqlite = "sqlite"
	StorageBadger = "badger"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Banks   []BankConfig  `yaml:"banks"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
}

type ServerConfig struct {
	ListenAddress string `yaml:"address" envconfig:"ADDRESS"`
	MetricsPath   string `yaml:"metricsPath" envconfig:"METRICS_PATH"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER"`
	// sqlite dsn or badger directory
	DSN string `yaml:"dsn" envconfig:"DSN"`
}

type OracleConfig struct {
	Kind   string        `yaml:"kind" envconfig:"KIND"`
	MaxAge time.Duration `yaml:"maxAge" envconfig:"MAX_AGE"`

	// static: asset -> price
	Prices map[string]string `yaml:"prices"`

	// mixin: asset -> mixin asset id
	Assets          map[string]string `yaml:"assets"`
	AccessToken     string            `yaml:"accessToken" envconfig:"ACCESS_TOKEN"`
	RefreshInterval time.Duration     `yaml:"refreshInterval" envconfig:"REFRESH_INTERVAL"`
}

// BankConfig is a bank created at startup when missing. Decimal fields are
// strings so YAML keeps their exact value.
type BankConfig struct {
	Asset                  string `yaml:"asset"`
	MaxLTV                 string `yaml:"maxLtv"`
	LiquidationThreshold   string `yaml:"liquidationThreshold"`
	DepositLimit           string `yaml:"depositLimit"`
	BorrowLimit            string `yaml:"borrowLimit"`
	Precision              *int32 `yaml:"precision"`
	CompoundingPeriod      int64  `yaml:"compoundingPeriod"`
	BaseInterestRate       string `yaml:"baseInterestRate"`
	OptimalUtilizationRate string `yaml:"optimalUtilizationRate"`
	PlateauInterestRate    string `yaml:"plateauInterestRate"`
	MaxInterestRate        string `yaml:"maxInterestRate"`
	ReserveFactor          string `yaml:"reserveFactor"`
	State                  string `yaml:"state"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			ListenAddress: ":8080",
			MetricsPath:   "/metrics",
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Oracle: OracleConfig{
			Kind:            "static",
			MaxAge:          5 * time.Minute,
			RefreshInterval: 30 * time.Second,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides
// named LENDING_<SECTION>_<FIELD>, e.g. LENDING_LOGGING_LEVEL,
// LENDING_STORAGE_DSN or LENDING_ORACLE_ACCESS_TOKEN.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}
	if err := envconfig.Process("lending", cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Storage.Driver {
	case StorageMemory:
	case StorageSqlite, StorageBadger:
		if cfg.Storage.DSN == "" {
			return errors.Errorf("storage driver %s needs a dsn", cfg.Storage.Driver)
		}
	default:
		return errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	setup, ok := core.ParseOracleSetup(cfg.Oracle.Kind)
	if !ok {
		return errors.Errorf("unknown oracle kind %q", cfg.Oracle.Kind)
	}
	if cfg.Oracle.MaxAge < 0 {
		return errors.New("oracle max age must not be negative")
	}
	switch setup {
	case core.StaticOracle:
		for asset, price := range cfg.Oracle.Prices {
			if _, err := decimal.NewFromString(price); err != nil {
				return errors.Wrapf(err, "oracle price for %s", asset)
			}
		}
	case core.MixinOracle:
		if len(cfg.Oracle.Assets) == 0 {
			return errors.New("mixin oracle needs at least one asset")
		}
		if cfg.Oracle.RefreshInterval <= 0 {
			return errors.New("mixin oracle refresh interval must be positive")
		}
	}

	seen := map[string]bool{}
	for _, b := range cfg.Banks {
		if seen[b.Asset] {
			return errors.Errorf("bank %s configured twice", b.Asset)
		}
		seen[b.Asset] = true
		if _, err := b.ToBankConfig(); err != nil {
			return errors.Wrapf(err, "bank %q", b.Asset)
		}
	}
	return nil
}

// OracleSetup is the parsed oracle kind. Validate has accepted it.
func (cfg *Config) OracleSetup() core.OracleSetup {
	setup, _ := core.ParseOracleSetup(cfg.Oracle.Kind)
	return setup
}

// StaticPrices parses the configured static prices.
func (cfg *Config) StaticPrices() (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(cfg.Oracle.Prices))
	for asset, raw := range cfg.Oracle.Prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "oracle price for %s", asset)
		}
		prices[asset] = price
	}
	return prices, nil
}

// ToBankConfig parses b with defaults filled and validates the result.
func (b BankConfig) ToBankConfig() (core.BankConfig, error) {
	if b.Asset == "" {
		return core.BankConfig{}, errors.Wrap(core.ErrInvalidConfig, "asset is empty")
	}

	var (
		cfg core.BankConfig
		err error
	)
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"maxLtv", b.MaxLTV, &cfg.MaxLTV},
		{"liquidationThreshold", b.LiquidationThreshold, &cfg.LiquidationThreshold},
		{"depositLimit", b.DepositLimit, &cfg.DepositLimit},
		{"borrowLimit", b.BorrowLimit, &cfg.BorrowLimit},
		{"baseInterestRate", b.BaseInterestRate, &cfg.BaseInterestRate},
		{"optimalUtilizationRate", b.OptimalUtilizationRate, &cfg.OptimalUtilizationRate},
		{"plateauInterestRate", b.PlateauInterestRate, &cfg.PlateauInterestRate},
		{"maxInterestRate", b.MaxInterestRate, &cfg.MaxInterestRate},
		{"reserveFactor", b.ReserveFactor, &cfg.ReserveFactor},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return core.BankConfig{}, errors.Wrapf(core.ErrInvalidConfig, "%s: %v", f.name, err)
		}
	}

	cfg.Precision = b.Precision
	cfg.CompoundingPeriod = b.CompoundingPeriod
	switch b.State {
	case "", "operational":
		cfg.OperationalState = core.BankOperationalStateOperational
	case "paused":
		cfg.OperationalState = core.BankOperationalStatePaused
	case "reduce_only":
		cfg.OperationalState = core.BankOperationalStateReduceOnly
	default:
		return core.BankConfig{}, errors.Wrapf(core.ErrInvalidConfig, "state %q", b.State)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return core.BankConfig{}, err
	}
	return cfg, nil
}
