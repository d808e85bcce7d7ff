package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"

	URLModePublic = "public"
	URLModeSigned = "signed"

	// MinUploadPartSize is the smallest multipart chunk S3 and MinIO accept.
	MinUploadPartSize = 5 * 1024 * 1024
)

type Config struct {
	ServerPort    string
	MaxUploadSize string

	LogLevel  string
	LogFormat string

	StorageDriver string
	Bucket        string
	Region        string

	IdentityPoolID    string
	S3Endpoint        string
	S3ForcePathStyle  bool
	S3AccessKeyID     string
	S3SecretAccessKey string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	UploadPartSize    int64
	UploadConcurrency int

	PhotoURLMode string
	SignedURLTTL time.Duration

	ActivityLog      bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error

	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		MaxUploadSize: getEnv("MAX_UPLOAD_SIZE", "32M"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverS3)),
		Bucket:        getEnv("ALBUM_BUCKET", "albums"),
		Region:        getEnv("BUCKET_REGION", "us-east-1"),

		IdentityPoolID:    getEnv("IDENTITY_POOL_ID", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3ForcePathStyle:  getBool("S3_FORCE_PATH_STYLE", false, &errs),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    getBool("MINIO_USE_SSL", false, &errs),

		UploadPartSize:    getInt64("UPLOAD_PART_SIZE", 8*1024*1024, &errs),
		UploadConcurrency: int(getInt64("UPLOAD_CONCURRENCY", 3, &errs)),

		PhotoURLMode: strings.ToLower(getEnv("PHOTO_URL_MODE", URLModePublic)),
		SignedURLTTL: getDuration("SIGNED_URL_TTL", 15*time.Minute, &errs),

		ActivityLog:      getBool("ACTIVITY_LOG", false, &errs),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "albumuser"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "albumpass"),
		PostgresDB:       getEnv("POSTGRES_DB", "albumdb"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverS3, DriverMinio, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.PhotoURLMode {
	case URLModePublic, URLModeSigned:
	default:
		return fmt.Errorf("unknown PHOTO_URL_MODE %q", c.PhotoURLMode)
	}

	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("ALBUM_BUCKET is required")
	}
	if c.UploadPartSize < MinUploadPartSize {
		return fmt.Errorf("UPLOAD_PART_SIZE must be at least %d bytes", MinUploadPartSize)
	}
	if c.UploadConcurrency <= 0 {
		return errors.New("UPLOAD_CONCURRENCY must be positive")
	}
	if c.SignedURLTTL <= 0 {
		return errors.New("SIGNED_URL_TTL must be positive")
	}

	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDB, c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool, errs *[]error) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return b
}

func getInt64(key string, fallback int64, errs *[]error) int64 {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return d
}
