package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Providers ProvidersConfig
	Billing   BillingConfig
	Pipeline  PipelineConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	PublicBaseURL   string
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// ProvidersConfig holds external capability provider configuration
type ProvidersConfig struct {
	OpenAIAPIKey     string
	TranslationModel string
	DubbingAPIURL    string
	DubbingAPIKey    string
}

// BillingConfig holds usage accounting configuration
type BillingConfig struct {
	RatePerMinute         float64
	AllowedMinutesDefault float64
	MaxDurationMinutes    float64
	MaxUploadBytes        int64
	AllowedContentTypes   []string
}

// PipelineConfig holds media pipeline configuration
type PipelineConfig struct {
	TempDir         string
	FFmpegPath      string
	FFprobePath     string
	DubPollInterval time.Duration
	DubPollAttempts int
	DefaultFontName string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "subvoc")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "5m")

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "media")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.publicBaseURL", "")

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Provider defaults
	viper.SetDefault("providers.openAIAPIKey", "")
	viper.SetDefault("providers.translationModel", "gpt-4o-mini")
	viper.SetDefault("providers.dubbingAPIURL", "https://api.elevenlabs.io/v1/dubbing")
	viper.SetDefault("providers.dubbingAPIKey", "")

	// Billing defaults
	viper.SetDefault("billing.ratePerMinute", 0.10)
	viper.SetDefault("billing.allowedMinutesDefault", 50.0)
	viper.SetDefault("billing.maxDurationMinutes", 120.0)
	viper.SetDefault("billing.maxUploadBytes", 100*1024*1024) // 100MB
	viper.SetDefault("billing.allowedContentTypes", []string{
		"video/mp4", "video/avi", "video/quicktime",
	})

	// Pipeline defaults
	viper.SetDefault("pipeline.tempDir", "/tmp/subvoc")
	viper.SetDefault("pipeline.ffmpegPath", "ffmpeg")
	viper.SetDefault("pipeline.ffprobePath", "ffprobe")
	viper.SetDefault("pipeline.dubPollInterval", "10s")
	viper.SetDefault("pipeline.dubPollAttempts", 30)
	viper.SetDefault("pipeline.defaultFontName", "Arial")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "subvoc")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")
}
