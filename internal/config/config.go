package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// InsecureJWTSecret is the development default and is refused elsewhere.
const InsecureJWTSecret = "insecure-dev-secret"

// Config holds application level configuration loaded from the environment.
type Config struct {
	Env      string `mapstructure:"ENV"`
	Port     string `mapstructure:"SERVER_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            int           `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBPoolSize        int           `mapstructure:"DB_POOL_SIZE"`
	DBAcquireTimeout  time.Duration `mapstructure:"DB_ACQUIRE_TIMEOUT"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	Migrations        bool          `mapstructure:"MIGRATIONS"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	CacheBackend  string        `mapstructure:"CACHE_BACKEND"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`

	SwaggerHost    string  `mapstructure:"SWAGGER_HOST"`
	LoginRateLimit float64 `mapstructure:"LOGIN_RATE_LIMIT"`
}

var defaults = map[string]interface{}{
	"ENV":                  "development",
	"SERVER_PORT":          "8080",
	"LOG_LEVEL":            "info",
	"DB_HOST":              "localhost",
	"DB_PORT":              3306,
	"DB_USER":              "root",
	"DB_PASSWORD":          "",
	"DB_NAME":              "clinic",
	"DB_POOL_SIZE":         10,
	"DB_ACQUIRE_TIMEOUT":   "5s",
	"DB_CONN_MAX_LIFETIME": "5m",
	"MIGRATIONS":           false,
	"JWT_SECRET":           InsecureJWTSecret,
	"TOKEN_TTL":            "30m",
	"CACHE_BACKEND":        "memory",
	"CACHE_TTL":            "5m",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"SWAGGER_HOST":         "",
	"LOGIN_RATE_LIMIT":     5,
}

// Load builds Config from the environment, falling back to a .env file in
// the working directory and then to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees env vars that are bound.
		_ = v.BindEnv(key)
	}

	// Missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesInsecureSecret reports whether the JWT secret is still the development default.
func (c *Config) UsesInsecureSecret() bool {
	return c.JWTSecret == InsecureJWTSecret
}

// DSN returns the MySQL data source name.
func (c *Config) DSN() string {
	return c.mysqlConfig().FormatDSN()
}

// MigrationDSN is DSN with multi-statement execution enabled, which the
// routine migrations need and request traffic does not.
func (c *Config) MigrationDSN() string {
	mc := c.mysqlConfig()
	mc.MultiStatements = true
	return mc.FormatDSN()
}

func (c *Config) mysqlConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort))
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.DBPoolSize < 1 {
		return fmt.Errorf("DB_POOL_SIZE must be at least 1, got %d", c.DBPoolSize)
	}
	if c.DBAcquireTimeout <= 0 {
		return fmt.Errorf("DB_ACQUIRE_TIMEOUT must be positive, got %s", c.DBAcquireTimeout)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be \"memory\" or \"redis\", got %q", c.CacheBackend)
	}
	if !c.IsDev() && c.UsesInsecureSecret() {
		return fmt.Errorf("JWT_SECRET must be set outside development (ENV=%q)", c.Env)
	}
	return nil
}
