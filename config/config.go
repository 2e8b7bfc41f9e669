package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel   string `env:"LOG_LEVEL"`
	HTTP       HTTP
	Postgres   Postgres
	Redis      Redis
	JWT        JWT
	API        API
	Cache      Cache
	Jobs       Jobs
	Pagination Pagination
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
	Debug           bool          `env:"HTTP_DEBUG"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type JWT struct {
	Secret    string        `env:"JWT_SECRET"`
	AccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"30m"`
}

type API struct {
	Debug     bool          `env:"API_DEBUG"`
	Timeout   time.Duration `env:"API_TIMEOUT"`
	MarketApi MarketApi
}

type MarketApi struct {
	Url      string `env:"MARKET_API_URL"`
	Currency string `env:"MARKET_API_CURRENCY" envDefault:"usd"`
}

type Cache struct {
	PricesExpiration    time.Duration `env:"CACHE_PRICES_EXPIRATION"`
	ValuationExpiration time.Duration `env:"CACHE_VALUATION_EXPIRATION"`
}

type Jobs struct {
	PriceSyncInterval time.Duration `env:"PRICE_SYNC_JOB_INTERVAL"`
}

type Pagination struct {
	DefaultLimit int `env:"PAGINATION_DEFAULT_LIMIT" envDefault:"20"`
	MaxLimit     int `env:"PAGINATION_MAX_LIMIT" envDefault:"100"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
