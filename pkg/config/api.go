package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment           string
	Addr                  string
	DatabaseURL           string
	MigrationsDir         string
	AutoMigrate           bool
	JWTSecret             string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	LogLevel              string
	RateLimitRedisAddr    string
	RateLimitRedisPass    string
	RateLimitRedisDB      int
	DashboardFetchTimeout time.Duration
	ShutdownTimeout       time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:           GetString("APP_ENV", "development"),
		Addr:                  GetString("API_ADDR", ":4000"),
		DatabaseURL:           GetString("DATABASE_URL", "postgres://tempo:tempo@db:5432/tempo?sslmode=disable"),
		MigrationsDir:         GetString("DB_MIGRATIONS_DIR", ""),
		AutoMigrate:           GetBool("DB_AUTO_MIGRATE", true),
		JWTSecret:             GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:        time.Duration(GetInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL:       time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 24)) * time.Hour,
		LogLevel:              GetString("LOG_LEVEL", "info"),
		RateLimitRedisAddr:    GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:    GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:      GetInt("RATE_LIMIT_REDIS_DB", 0),
		DashboardFetchTimeout: time.Duration(GetInt("DASHBOARD_FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		ShutdownTimeout:       GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Production reports whether the service runs in a production environment.
func (c APIConfig) Production() bool {
	return c.Environment == "production"
}
