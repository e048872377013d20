package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Storage backends for the sequence counters
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config is the runtime configuration of the engine
type Config struct {
	Prefixes PrefixConfig   `mapstructure:"prefixes"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Storage  StorageConfig  `mapstructure:"storage"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

type PrefixConfig struct {
	Transfer        string `mapstructure:"transfer"`
	Issue           string `mapstructure:"issue"`
	PurchaseRequest string `mapstructure:"purchase_request"`
	Requisition     string `mapstructure:"requisition"`
}

type ApprovalConfig struct {
	DepartmentHeadRole string   `mapstructure:"department_head_role"`
	ConsignmentRole    string   `mapstructure:"consignment_role"`
	StandardChain      []string `mapstructure:"standard_chain"`
	DisableBypass      bool     `mapstructure:"disable_bypass"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	BadgerPath  string `mapstructure:"badger_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from path (optional, any format viper knows),
// then STOREREQ_* environment variables, on top of the defaults.
// STOREREQ_STORAGE_BACKEND overrides storage.backend
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STOREREQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		panic(err)
	}
	return config
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			return fmt.Errorf("storage.badger_path is required for the badger backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	prefixes := map[string]string{
		"transfer":         c.Prefixes.Transfer,
		"issue":            c.Prefixes.Issue,
		"purchase_request": c.Prefixes.PurchaseRequest,
		"requisition":      c.Prefixes.Requisition,
	}
	seen := make(map[string]string, len(prefixes))
	for name, prefix := range prefixes {
		if prefix == "" || strings.ToUpper(prefix) != prefix || strings.IndexFunc(prefix, notLetter) >= 0 {
			return fmt.Errorf("prefixes.%s must be uppercase letters, got %q", name, prefix)
		}
		if other, ok := seen[prefix]; ok {
			return fmt.Errorf("prefixes.%s and prefixes.%s share prefix %s", name, other, prefix)
		}
		seen[prefix] = name
	}
	return nil
}

func notLetter(r rune) bool {
	return r < 'A' || r > 'Z'
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prefixes.transfer", "TRF")
	v.SetDefault("prefixes.issue", "ISS")
	v.SetDefault("prefixes.purchase_request", "PR")
	v.SetDefault("prefixes.requisition", "SR")

	v.SetDefault("approval.department_head_role", "department-head")
	v.SetDefault("approval.consignment_role", "procurement-or-vendor-liaison")
	v.SetDefault("approval.standard_chain", []string{"store-manager"})
	v.SetDefault("approval.disable_bypass", false)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.badger_path", "./data/counters")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("http.address", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
