package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/ultracore/internal/services/exchange"
)

const (
	StrategyFirstIssuer = "first_issuer"
	StrategyRandom      = "random"

	defaultWalDir                = "wal"
	defaultSettleInterval        = 5 * time.Second
	defaultMatchAttemptThreshold = 2
	defaultDashboardAddr         = ":8080"
)

type Config struct {
	WalDir                string
	SettleInterval        time.Duration
	MatchAttemptThreshold int
	SystemUserID          int64
	SelectionStrategy     string
	DashboardAddr         string
	VenRates              []exchange.CurrencyRate
}

type ConfigTmp struct {
	WalDir                string        `yaml:"wal_dir"`
	SettleInterval        time.Duration `yaml:"settle_interval"`
	MatchAttemptThreshold int           `yaml:"match_attempt_threshold"`
	SystemUserID          int64         `yaml:"system_user_id"`
	SelectionStrategy     string        `yaml:"selection_strategy"`
	DashboardAddr         string        `yaml:"dashboard_addr"`
	VenRates              []RateTmp     `yaml:"ven_rates"`
}

type RateTmp struct {
	Currency      string `yaml:"currency"`
	RatePerOneVen string `yaml:"rate_per_one_ven"`
}

// Get loads the configuration from the yaml file given with -config, falling
// back to flags when no file is provided.
func Get() (*Config, error) {
	path := flag.String("config", "", "path to yaml config")
	walDir := flag.String("waldir", defaultWalDir, "directory for write-ahead logs")
	interval := flag.Duration("settleinterval", defaultSettleInterval, "pause between match cycles")
	threshold := flag.Int("matchattempts", defaultMatchAttemptThreshold, "match attempts before an order falls back to issuer settlement")
	systemUser := flag.Int64("systemuser", 1, "user id of the system account that collects spread profit")
	strategy := flag.String("strategy", StrategyFirstIssuer, "issuer selection strategy: first_issuer or random")
	dashboardAddr := flag.String("dashboard", defaultDashboardAddr, "dashboard listen address")
	flag.Parse()

	if *path != "" {
		return FromFile(*path)
	}

	cfg := &Config{
		WalDir:                *walDir,
		SettleInterval:        *interval,
		MatchAttemptThreshold: *threshold,
		SystemUserID:          *systemUser,
		SelectionStrategy:     *strategy,
		DashboardAddr:         *dashboardAddr,
	}

	return cfg, cfg.validate()
}

// FromFile loads the configuration from a yaml file.
func FromFile(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, err
	}

	cfg := &Config{
		WalDir:                tmp.WalDir,
		SettleInterval:        tmp.SettleInterval,
		MatchAttemptThreshold: tmp.MatchAttemptThreshold,
		SystemUserID:          tmp.SystemUserID,
		SelectionStrategy:     tmp.SelectionStrategy,
		DashboardAddr:         tmp.DashboardAddr,
	}
	if cfg.WalDir == "" {
		cfg.WalDir = defaultWalDir
	}
	if cfg.SettleInterval == 0 {
		cfg.SettleInterval = defaultSettleInterval
	}
	if cfg.MatchAttemptThreshold == 0 {
		cfg.MatchAttemptThreshold = defaultMatchAttemptThreshold
	}
	if cfg.SelectionStrategy == "" {
		cfg.SelectionStrategy = StrategyFirstIssuer
	}
	if cfg.DashboardAddr == "" {
		cfg.DashboardAddr = defaultDashboardAddr
	}

	for _, r := range tmp.VenRates {
		rate, err := decimal.NewFromString(r.RatePerOneVen)
		if err != nil {
			return nil, fmt.Errorf("incorrect 'rate_per_one_ven' param for currency %s in yaml config: %w", r.Currency, err)
		}
		cfg.VenRates = append(cfg.VenRates, exchange.CurrencyRate{
			CurrencyName:  r.Currency,
			RatePerOneVen: rate,
		})
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.SettleInterval <= 0 {
		return fmt.Errorf("settle interval must be positive, got %s", c.SettleInterval)
	}
	if c.MatchAttemptThreshold < 1 {
		return fmt.Errorf("match attempt threshold must be at least 1, got %d", c.MatchAttemptThreshold)
	}
	if c.SystemUserID == 0 {
		return fmt.Errorf("system user id must be set")
	}
	if c.SelectionStrategy != StrategyFirstIssuer && c.SelectionStrategy != StrategyRandom {
		return fmt.Errorf("unknown selection strategy %q", c.SelectionStrategy)
	}
	return nil
}
