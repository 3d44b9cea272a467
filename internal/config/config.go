package config

import (
	"os"
	"strings"
	"time"
)

const (
	ScopeGlobal = "global"
	ScopeOwner  = "owner"

	IDStrategyTimestamp = "timestamp"
	IDStrategyObjectID  = "objectid"
)

type Config struct {
	MongoURI      string
	MongoDatabase string
	PostgresURI   string
	RedisURI      string
	Port          string
	Environment   string // ENV: production, development, etc.
	LogLevel      string

	JWTSecret         string
	TokenIssuer       string
	TokenAudience     string
	TokenTTL          time.Duration
	SessionCookieName string

	RPDCollection   string
	UsersCollection string
	RPDScope        string // global: every record; owner: caller's records only
	RPDIDStrategy   string // timestamp: YYYYMMDDHHMMSS; objectid: Mongo ObjectID hex

	// CORS: empty or "*" reflects every origin; credentials are always allowed.
	// Interpreted by middleware.CORS.
	AllowedOrigins []string
	// AllowedHost, when set, is the only Host header accepted in production.
	AllowedHost string

	ProfileRetryInterval time.Duration
}

func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/rpd")),
		MongoDatabase: getEnv("MONGODB_DATABASE", ""),
		PostgresURI:   getEnv("POSTGRES_URI", "postgres://localhost:5432/rpd?sslmode=disable"),
		RedisURI:      getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:          getEnv("PORT", "8080"),
		Environment:   strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),

		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		TokenIssuer:       getEnv("TOKEN_ISSUER", "rpd-identity"),
		TokenAudience:     getEnv("TOKEN_AUDIENCE", "rpd-backend"),
		TokenTTL:          getDuration("TOKEN_TTL", time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "__session"),

		RPDCollection:   getEnv("RPD_COLLECTION", "RPD"),
		UsersCollection: getEnv("USERS_COLLECTION", "users"),
		RPDScope:        oneOf(getEnv("RPD_SCOPE", ScopeGlobal), ScopeGlobal, ScopeGlobal, ScopeOwner),
		RPDIDStrategy:   oneOf(getEnv("RPD_ID_STRATEGY", IDStrategyTimestamp), IDStrategyTimestamp, IDStrategyTimestamp, IDStrategyObjectID),

		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "*")),
		AllowedHost:    strings.TrimSpace(getEnv("ALLOWED_HOST", "")),

		ProfileRetryInterval: getDuration("PROFILE_RETRY_INTERVAL", 30*time.Second),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// oneOf returns v lower-cased when it is one of allowed, otherwise fallback.
func oneOf(v, fallback string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
