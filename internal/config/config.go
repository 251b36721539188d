package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrations      string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	BucketImages string
	UseSSL       bool
	Region       string
}

type SecurityConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	RememberTTL  time.Duration
	SessionGrace time.Duration

	// OpenStaffSignup lets anonymous callers register dealer and sales agent
	// accounts. Off, only a signed-in dealer can create them.
	OpenStaffSignup bool
}

// PricingConfig holds the business constants used by the pricing calculator
// and transaction settlement.
type PricingConfig struct {
	CompanyMarginRate     float64
	TaxRate               float64
	DocumentFee           float64
	DefaultCommissionRate float64
}

type CarJamConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type StoreConfig struct {
	Backend   string
	LocalPath string
}

type BookingConfig struct {
	LockTTL time.Duration
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Pricing          PricingConfig
	CarJam           CarJamConfig
	Store            StoreConfig
	Booking          BookingConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

const (
	BackendPostgres = "postgres"
	BackendLocal    = "local"
)

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("ZUCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// deployments of the proxy share this variable with the serverless functions
	if err := v.BindEnv("carjam.apikey", "ZUCO_CARJAM_APIKEY", "CARJAM_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind carjam key: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.Backend != BackendPostgres && cfg.Store.Backend != BackendLocal {
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrations", "migrations")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketimages", "zuco-vehicle-images")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "8h")
	v.SetDefault("security.rememberttl", "720h") // 30 days
	v.SetDefault("security.sessiongrace", "24h")
	v.SetDefault("security.openstaffsignup", false)

	v.SetDefault("pricing.companymarginrate", 0.89)
	v.SetDefault("pricing.taxrate", 0.15)
	v.SetDefault("pricing.documentfee", 499)
	v.SetDefault("pricing.defaultcommissionrate", 0.03)

	v.SetDefault("carjam.baseurl", "https://www.carjam.co.nz/api/car/")
	v.SetDefault("carjam.timeout", "15s")

	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("store.localpath", "data/zuco.json")

	v.SetDefault("booking.lockttl", "5s")

	v.SetDefault("worker.stream", "zuco:tasks")
	v.SetDefault("worker.group", "zuco-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
}
