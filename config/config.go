package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultTokenTTLMinutes is eight days.
const DefaultTokenTTLMinutes = 60 * 24 * 8

type Config struct {
	ServerPort  int
	APIPrefix   string
	CORSOrigins []string
	Log         LogConfig
	Auth        AuthConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	MQ          MQConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
	BcryptCost      int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// StorageConfig selects the object storage used for product images.
// An empty Backend disables image routes.
type StorageConfig struct {
	Backend   string
	KeyPrefix string
	Minio     MinioConfig
	GCS       GCSConfig
	S3        S3Config
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Profile   string
	AccessKey string
	SecretKey string
}

// MQConfig selects the broker catalog events are published to.
// An empty Backend disables publishing.
type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// LoadConfig reads configuration from the environment and an optional
// config.yaml in the working directory. In ENV=dev a .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		ServerPort:  v.GetInt("SERVER_PORT"),
		APIPrefix:   strings.TrimRight(v.GetString("API_V1_STR"), "/"),
		CORSOrigins: splitList(v.GetString("BACKEND_CORS_ORIGINS")),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret:       strings.TrimSpace(v.GetString("JWT_SECRET")),
			TokenTTLMinutes: v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
			BcryptCost:      v.GetInt("BCRYPT_COST"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			UseSSL:   v.GetBool("DB_SSL"),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
			KeyPrefix: strings.Trim(v.GetString("STORAGE_KEY_PREFIX"), "/"),
			Minio: MinioConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				ProjectID:       v.GetString("GCS_PROJECT_ID"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
			},
			S3: S3Config{
				Bucket:    v.GetString("S3_BUCKET"),
				Region:    v.GetString("S3_REGION"),
				Endpoint:  v.GetString("S3_ENDPOINT"),
				Profile:   v.GetString("AWS_PROFILE"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
			},
		},
		MQ: MQConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("MQ_BACKEND"))),
			Channel: v.GetString("CATALOG_EVENTS_CHANNEL"),
			RabbitMQ: RabbitMQConfig{
				URL:             v.GetString("RABBITMQ_URL"),
				QueueDurable:    v.GetBool("RABBITMQ_QUEUE_DURABLE"),
				QueueAutoDelete: v.GetBool("RABBITMQ_QUEUE_AUTO_DELETE"),
				PrefetchCount:   v.GetInt("RABBITMQ_PREFETCH_COUNT"),
			},
			PubSub: PubSubConfig{
				ProjectID:          v.GetString("PUBSUB_PROJECT_ID"),
				CredentialsFile:    v.GetString("PUBSUB_CREDENTIALS_FILE"),
				SubscriptionSuffix: v.GetString("PUBSUB_SUBSCRIPTION_SUFFIX"),
			},
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("API_V1_STR", "/api/v1")
	v.SetDefault("BACKEND_CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", DefaultTokenTTLMinutes)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "vente")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "ecommerce")
	v.SetDefault("DB_SSL", false)
	v.SetDefault("STORAGE_BACKEND", "")
	v.SetDefault("STORAGE_KEY_PREFIX", "products")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("MQ_BACKEND", "")
	v.SetDefault("CATALOG_EVENTS_CHANNEL", "catalog-events")
	v.SetDefault("RABBITMQ_QUEUE_DURABLE", true)
	v.SetDefault("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub")
}

// Validate reports configuration that the server cannot start with.
// The signing secret has no generated fallback: a fresh secret on every start
// would invalidate all issued tokens.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs", "s3":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend)
	}
	return nil
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
