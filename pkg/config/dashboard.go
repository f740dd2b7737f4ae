package config

import "time"

// DashboardConfig holds runtime configuration for the web dashboard.
type DashboardConfig struct {
	Environment    string
	Addr           string
	LogLevel       string
	APIBaseURL     string
	SessionSecret  string
	CookieName     string
	CookieSecure   bool
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	QueryRedisAddr string
	QueryRedisPass string
	QueryRedisDB   int
	QueryChannel   string
}

// LoadDashboardConfig constructs a DashboardConfig from environment variables.
func LoadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Environment:    GetString("APP_ENV", "development"),
		Addr:           GetString("DASHBOARD_ADDR", ":3000"),
		LogLevel:       GetString("LOG_LEVEL", "info"),
		APIBaseURL:     GetString("API_BASE_URL", "http://localhost:4000"),
		SessionSecret:  GetString("SESSION_SECRET", ""),
		CookieName:     GetString("SESSION_COOKIE_NAME", "nebula_session"),
		CookieSecure:   GetBool("SESSION_COOKIE_SECURE", false),
		SessionTTL:     GetDuration("SESSION_TTL_MIN", 60*time.Minute, time.Minute),
		RequestTimeout: GetDuration("DASHBOARD_REQUEST_TIMEOUT_SECONDS", 10*time.Second, time.Second),
		QueryRedisAddr: GetString("QUERY_REDIS_ADDR", ""),
		QueryRedisPass: GetString("QUERY_REDIS_PASSWORD", ""),
		QueryRedisDB:   GetInt("QUERY_REDIS_DB", 0),
		QueryChannel:   GetString("QUERY_INVALIDATION_CHANNEL", "nebula:query:invalidate"),
	}
}
