// backend-go/internal/config/config.go
package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	Cleanup   CleanupConfig
	Recaptcha RecaptchaConfig
	Cache     CacheConfig
	Database  DatabaseConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and configures the object storage driver
// ("gcs", "minio" or "sevalla").
type StorageConfig struct {
	Driver          string
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Region          string
	UseSSL          bool
}

type CleanupConfig struct {
	Targets              string
	DeleteTimeoutSeconds int
	SweepBatchSize       int
	SweepConcurrency     int
}

// DeleteTimeout is the bound applied to a single storage delete call.
func (c CleanupConfig) DeleteTimeout() time.Duration {
	if c.DeleteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.DeleteTimeoutSeconds) * time.Second
}

type RecaptchaConfig struct {
	// Secret is the resolved server-side secret: the runtime configuration
	// store value when set, otherwise RECAPTCHA_SECRET.
	Secret         string
	VerifyURL      string
	TimeoutSeconds int
}

func (c RecaptchaConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	DeliveryTTLHours int
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		env := viper.New()
		SetDefaults(env)
		env.AutomaticEnv()

		store, err := loadRuntimeStore(env.GetString("RUNTIME_CONFIG_FILE"))
		if err != nil {
			log.Warn().Err(err).Msg("runtime config store not loaded")
		}

		instance = FromViper(env, store)
	})

	return instance
}

// SetDefaults registers the default values for every environment key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORAGE_DRIVER", "gcs")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("CLEANUP_TARGETS", "onPermitDeleted=permits:image,onLicenseDeleted=licenses:image")
	v.SetDefault("CLEANUP_DELETE_TIMEOUT_SECONDS", 10)
	v.SetDefault("CLEANUP_SWEEP_BATCH_SIZE", 100)
	v.SetDefault("CLEANUP_SWEEP_CONCURRENCY", 4)
	v.SetDefault("RECAPTCHA_VERIFY_URL", DefaultVerifyURL)
	v.SetDefault("RECAPTCHA_TIMEOUT_SECONDS", 10)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_DELIVERY_TTL_HOURS", 24)
	v.SetDefault("LEDGER_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "permitvault")
	v.SetDefault("DB_SSLMODE", "disable")
}

// FromViper builds a Config from env-backed settings and an optional runtime
// configuration store. store may be nil.
func FromViper(env, store *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           env.GetString("SERVER_PORT"),
			Mode:           env.GetString("SERVER_MODE"),
			ReadTimeout:    env.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   env.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: env.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL"),
			Format: env.GetString("LOG_FORMAT"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(env.GetString("STORAGE_DRIVER")),
			Bucket:          env.GetString("STORAGE_BUCKET"),
			CredentialsFile: env.GetString("STORAGE_CREDENTIALS_FILE"),
			CredentialsJSON: env.GetString("STORAGE_CREDENTIALS_JSON"),
			Endpoint:        env.GetString("STORAGE_ENDPOINT"),
			AccessKey:       env.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:       env.GetString("STORAGE_SECRET_KEY"),
			Region:          env.GetString("STORAGE_REGION"),
			UseSSL:          env.GetBool("STORAGE_USE_SSL"),
		},
		Cleanup: CleanupConfig{
			Targets:              env.GetString("CLEANUP_TARGETS"),
			DeleteTimeoutSeconds: env.GetInt("CLEANUP_DELETE_TIMEOUT_SECONDS"),
			SweepBatchSize:       env.GetInt("CLEANUP_SWEEP_BATCH_SIZE"),
			SweepConcurrency:     env.GetInt("CLEANUP_SWEEP_CONCURRENCY"),
		},
		Recaptcha: RecaptchaConfig{
			Secret:         ResolveSecret(store, env.GetString("RECAPTCHA_SECRET")),
			VerifyURL:      env.GetString("RECAPTCHA_VERIFY_URL"),
			TimeoutSeconds: env.GetInt("RECAPTCHA_TIMEOUT_SECONDS"),
		},
		Cache: CacheConfig{
			Enabled:          env.GetBool("CACHE_ENABLED"),
			RedisURL:         env.GetString("REDIS_URL"),
			RedisHost:        env.GetString("REDIS_HOST"),
			RedisPort:        env.GetString("REDIS_PORT"),
			RedisPassword:    env.GetString("REDIS_PASSWORD"),
			RedisDB:          env.GetInt("REDIS_DB"),
			DeliveryTTLHours: env.GetInt("CACHE_DELIVERY_TTL_HOURS"),
		},
		Database: DatabaseConfig{
			Enabled:  env.GetBool("LEDGER_ENABLED"),
			Host:     env.GetString("DB_HOST"),
			Port:     env.GetString("DB_PORT"),
			User:     env.GetString("DB_USER"),
			Password: env.GetString("DB_PASSWORD"),
			DBName:   env.GetString("DB_NAME"),
			SSLMode:  env.GetString("DB_SSLMODE"),
		},
	}
}

// ResolveSecret returns recaptcha.secret from the runtime configuration store
// when present, falling back to the environment value.
func ResolveSecret(store *viper.Viper, envSecret string) string {
	if store != nil {
		if s := strings.TrimSpace(store.GetString("recaptcha.secret")); s != "" {
			return s
		}
	}
	return strings.TrimSpace(envSecret)
}

// loadRuntimeStore reads the deploy-time configuration file (YAML, JSON or
// TOML, detected from the extension). An empty path yields a nil store.
func loadRuntimeStore(path string) (*viper.Viper, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store := viper.New()
	store.SetConfigFile(path)
	if err := store.ReadInConfig(); err != nil {
		return nil, err
	}
	return store, nil
}
