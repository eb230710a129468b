package config

import (
	"errors"
	"fmt"
	"github.com/nikolayk812/bakery-cart/internal/logger"
	"github.com/spf13/viper"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Catalog []ProductItem `mapstructure:"catalog"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory / sqlite / postgres / redis
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig bounds the cart stores held in memory. Carts stay persisted after eviction.
type SessionConfig struct {
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	MaxStores int           `mapstructure:"max_stores"`
}

type ShopConfig struct {
	Name           string `mapstructure:"name"`
	Currency       string `mapstructure:"currency"` // ISO 4217 code
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// ProductItem is one catalog entry. Price is kept as text and parsed into a decimal by the catalog.
type ProductItem struct {
	Name        string `mapstructure:"name"`
	Price       string `mapstructure:"price"`
	Description string `mapstructure:"description"`
}

// Load reads config.yml from the given paths (or the usual locations) and the environment.
// A missing file is not an error: defaults apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./etc", "../.."}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("v.ReadInConfig: %w", err)
		}
		logger.Infow("config_file_not_found", "paths", paths)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "cart.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "./data/cart.db")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "bakery")
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.max_stores", 10000)
	v.SetDefault("shop.name", "The Bakery")
	v.SetDefault("shop.currency", "INR")
	v.SetDefault("shop.currency_symbol", "₹")
	v.SetDefault("catalog", []map[string]interface{}{
		{"name": "Croissant", "price": "150", "description": "Butter croissant, baked every morning"},
		{"name": "Bagel", "price": "120", "description": "Sesame bagel"},
		{"name": "Sourdough Loaf", "price": "320", "description": "Slow fermented country loaf"},
		{"name": "Chocolate Muffin", "price": "90", "description": "Double chocolate muffin"},
		{"name": "Cinnamon Roll", "price": "110", "description": "Glazed cinnamon roll"},
	})
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	if c.Storage.Driver != DriverMemory && c.Storage.Driver != DriverRedis && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn is empty for driver %s", c.Storage.Driver)
	}

	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive")
	}
	if c.Session.MaxStores <= 0 {
		return fmt.Errorf("session.max_stores must be positive")
	}

	return nil
}
