package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment           string
	Addr                  string
	LogLevel              string
	DatabaseURL           string
	MigrationsDir         string
	JWTSecret             string
	SecretsKey            string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	ServiceToken          string
	RateLimitRedisAddr    string
	RateLimitRedisPass    string
	RateLimitRedisDB      int
	FileListingS3Bucket   string
	FileListingS3Region   string
	FileListingS3Endpoint string
	TOTPIssuer            string
	NotificationBuffer    int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:           GetString("APP_ENV", "development"),
		Addr:                  GetString("API_ADDR", ":4000"),
		LogLevel:              GetString("LOG_LEVEL", "info"),
		DatabaseURL:           GetString("DATABASE_URL", "postgres://nebula:nebula@db:5432/nebula?sslmode=disable"),
		MigrationsDir:         GetString("DB_MIGRATIONS_DIR", ""),
		JWTSecret:             GetString("JWT_SECRET", "supersecuresecret"),
		SecretsKey:            GetString("SECRETS_KEY", "supersecuresecret"),
		AccessTokenTTL:        GetDuration("ACCESS_TOKEN_TTL_MIN", 60*time.Minute, time.Minute),
		RefreshTokenTTL:       GetDuration("REFRESH_TOKEN_TTL_HOURS", 24*time.Hour, time.Hour),
		ServiceToken:          GetString("SERVICE_TOKEN", ""),
		RateLimitRedisAddr:    GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:    GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:      GetInt("RATE_LIMIT_REDIS_DB", 0),
		FileListingS3Bucket:   GetString("FILE_LISTING_S3_BUCKET", ""),
		FileListingS3Region:   GetString("FILE_LISTING_S3_REGION", "us-east-1"),
		FileListingS3Endpoint: GetString("FILE_LISTING_S3_ENDPOINT", ""),
		TOTPIssuer:            GetString("TOTP_ISSUER", "Nebula Cloud"),
		NotificationBuffer:    GetInt("WS_NOTIFICATION_BUFFER", 32),
	}
}
