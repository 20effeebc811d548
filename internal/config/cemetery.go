package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CemeteryPolicy carries operator-tunable settings that can change while the
// process runs.
type CemeteryPolicy struct {
	DefaultCurrency string         `mapstructure:"defaultCurrency"`
	PostToLedger    bool           `mapstructure:"postToLedger"`
	SearchMaxLength int            `mapstructure:"searchMaxLength"`
	Ledger          LedgerAccounts `mapstructure:"ledger"`
}

type LedgerAccounts struct {
	CashAccount    string `mapstructure:"cashAccount"`
	RevenueAccount string `mapstructure:"revenueAccount"`
}

func DefaultCemeteryPolicy() CemeteryPolicy {
	return CemeteryPolicy{
		DefaultCurrency: "EUR",
		PostToLedger:    true,
		SearchMaxLength: 100,
		Ledger: LedgerAccounts{
			CashAccount:    "cash",
			RevenueAccount: "concession_revenue",
		},
	}
}

type CemeteryPolicyHolder struct {
	current atomic.Value // holds CemeteryPolicy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy CemeteryPolicy) *CemeteryPolicyHolder {
	holder := &CemeteryPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewCemeteryPolicyHolder(log *zap.Logger) (*CemeteryPolicyHolder, error) {
	log = log.Named("config.cemetery")
	v := viper.New()

	v.SetConfigName("cemetery")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ecclesia")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ECCLESIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCemeteryPolicy()
	v.SetDefault("cemetery.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("cemetery.postToLedger", defaults.PostToLedger)
	v.SetDefault("cemetery.searchMaxLength", defaults.SearchMaxLength)
	v.SetDefault("cemetery.ledger.cashAccount", defaults.Ledger.CashAccount)
	v.SetDefault("cemetery.ledger.revenueAccount", defaults.Ledger.RevenueAccount)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg CemeteryPolicy
	if err := v.UnmarshalKey("cemetery", &cfg); err != nil {
		return nil, err
	}
	if err := validateCemeteryPolicy(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CemeteryPolicy
		if err := v.UnmarshalKey("cemetery", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateCemeteryPolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *CemeteryPolicyHolder) Get() CemeteryPolicy {
	return h.current.Load().(CemeteryPolicy)
}

func validateCemeteryPolicy(cfg CemeteryPolicy) error {
	if len(strings.TrimSpace(cfg.DefaultCurrency)) != 3 {
		return errors.New("cemetery.defaultCurrency must be a 3 letter code")
	}
	if cfg.SearchMaxLength <= 0 {
		return errors.New("cemetery.searchMaxLength must be positive")
	}
	if cfg.Ledger.CashAccount == "" || cfg.Ledger.RevenueAccount == "" {
		return errors.New("cemetery.ledger accounts cannot be empty")
	}
	if cfg.Ledger.CashAccount == cfg.Ledger.RevenueAccount {
		return errors.New("cemetery.ledger accounts must differ")
	}
	return nil
}
