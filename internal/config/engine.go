package config

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig holds the tunables of the calculation engine. Values are
// reloadable at runtime so compliance can adjust warning windows without
// a redeploy.
type EngineConfig struct {
	// CertificateExpiryWarnDays controls how far ahead of a certificate
	// expiry the engine starts emitting advisory warnings.
	CertificateExpiryWarnDays int `mapstructure:"certificateExpiryWarnDays"`

	// NexusFilingWarnDays controls how far ahead of a nexus filing due
	// date the engine starts emitting advisory warnings.
	NexusFilingWarnDays int `mapstructure:"nexusFilingWarnDays"`

	// LookupCacheTTLMinutes bounds staleness of cached jurisdiction and
	// rate lookups.
	LookupCacheTTLMinutes int `mapstructure:"lookupCacheTTLMinutes"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CertificateExpiryWarnDays: 30,
		NexusFilingWarnDays:       7,
		LookupCacheTTLMinutes:     5,
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig

	mu       sync.Mutex
	onReload []func()
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/taxflow/config") // Volume-mounted config
	v.AddConfigPath("/etc/taxflow")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("TAXFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultEngineConfig()
		v.SetDefault("engine.certificateExpiryWarnDays", defaults.CertificateExpiryWarnDays)
		v.SetDefault("engine.nexusFilingWarnDays", defaults.NexusFilingWarnDays)
		v.SetDefault("engine.lookupCacheTTLMinutes", defaults.LookupCacheTTLMinutes)
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EngineConfig
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Printf("[engine-config] reload failed: %v", err)
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.Update(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

// Update swaps the active configuration and notifies reload listeners.
func (h *EngineConfigHolder) Update(cfg EngineConfig) {
	h.current.Store(cfg)

	h.mu.Lock()
	listeners := make([]func(), len(h.onReload))
	copy(listeners, h.onReload)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers fn to run after every configuration reload. Caches
// keyed off engine tunables hook in here to drop stale entries.
func (h *EngineConfigHolder) OnReload(fn func()) {
	h.mu.Lock()
	h.onReload = append(h.onReload, fn)
	h.mu.Unlock()
}

// NewStaticEngineConfigHolder returns a holder pinned to cfg. Used by tests.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.CertificateExpiryWarnDays < 0 || cfg.NexusFilingWarnDays < 0 {
		return errors.New("warning windows must not be negative")
	}
	if cfg.LookupCacheTTLMinutes < 0 {
		return errors.New("lookup cache ttl must not be negative")
	}
	return nil
}
