package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SMARTMARK"

	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Backend    string // "redis" | "sqlite"
	SQLitePath string // ex: "./smartmark.db"

	// Sessions
	JWTSecret      string        // HMAC secret for access tokens (required)
	SessionTTL     time.Duration // lifetime of a session (default: 168h)
	SessionTimeout time.Duration // how long the gate waits in pending (default: 3s)
	AccessToken    string        // optional token restored at startup

	// Sync
	WriteTimeout time.Duration // bound on each remote insert/delete (default: 5s)
	FetchTimeout time.Duration // bound on each refresh (default: 5s)
	GCInterval   time.Duration // interval to sweep expired sessions (default: 1h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict /readyz to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	AllowedOrigins []string // optional, CORS origins allowed on /api
	TrustProxy     bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	LoginRateLimit int      // max POST /login per client per minute
}

// Load reads configuration from (in increasing precedence) defaults, the
// optional YAML file at path, a .env file in the working directory and the
// SMARTMARK_* environment. Invalid or missing required values panic.
func Load(path string) *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("❌ FATAL: cannot read .env: %v", err))
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic(fmt.Sprintf("❌ FATAL: cannot read config file %s: %v", path, err))
		}
	}

	cfg := &Config{
		// Server settings
		ListenPort:      v.GetString("listen_port"),
		ShutdownTimeout: mustDuration(v, "shutdown_timeout"),

		// Logging
		LogLevel:  v.GetString("log.level"),
		PrettyLog: v.GetBool("log.pretty"),

		// Backend
		Backend:    strings.ToLower(v.GetString("backend")),
		SQLitePath: v.GetString("sqlite.path"),

		// Sessions
		JWTSecret:      requireString(v, "jwt_secret"),
		SessionTTL:     mustDuration(v, "session.ttl"),
		SessionTimeout: mustDuration(v, "session.timeout"),
		AccessToken:    v.GetString("session.access_token"),

		// Sync
		WriteTimeout: mustDuration(v, "sync.write_timeout"),
		FetchTimeout: mustDuration(v, "sync.fetch_timeout"),
		GCInterval:   mustDuration(v, "gc_interval"),

		// Redis settings
		RedisAddr:             v.GetString("redis.addr"),
		RedisUser:             v.GetString("redis.username"),
		RedisPasswordRequired: v.GetBool("redis.password_required"),
		RedisPassword:         v.GetString("redis.password"),
		RedisDB:               v.GetInt("redis.db"),
		RedisDT:               mustDuration(v, "redis.dial_timeout"),
		RedisRT:               mustDuration(v, "redis.read_timeout"),
		RedisWT:               mustDuration(v, "redis.write_timeout"),
		RedisMaxWait:          mustDuration(v, "redis.max_wait"),
		RedisPingTimeout:      mustDuration(v, "redis.ping_timeout"),
		RedisPoolSize:         v.GetInt("redis.pool_size"),
		RedisConnectTimeout:   mustDuration(v, "redis.connect_timeout"),
		RedisRetryInterval:    mustDuration(v, "redis.retry_interval"),
		RedisWarnThreshold:    v.GetInt("redis.warn_threshold"),

		// Access restrictions
		AllowedHosts:   stringSlice(v, "allowed_hosts"),
		AllowedCIDRS:   stringSlice(v, "allowed_cidrs"),
		AllowedOrigins: stringSlice(v, "allowed_origins"),
		TrustProxy:     v.GetBool("trust_proxy"),
		LoginRateLimit: v.GetInt("login_rate_limit"),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.JWTSecret = "***REDACTED***"
		if cfg.AccessToken != "" {
			cfgCopy.AccessToken = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_port", ":8080")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("backend", BackendRedis)
	v.SetDefault("sqlite.path", "smartmark.db")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.timeout", "3s")
	v.SetDefault("session.access_token", "")

	v.SetDefault("sync.write_timeout", "5s")
	v.SetDefault("sync.fetch_timeout", "5s")
	v.SetDefault("gc_interval", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "default")
	v.SetDefault("redis.password_required", true)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.max_wait", "10s")
	v.SetDefault("redis.ping_timeout", "5s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.connect_timeout", "30s")
	v.SetDefault("redis.retry_interval", "2s")
	v.SetDefault("redis.warn_threshold", 3)

	v.SetDefault("allowed_hosts", "")
	v.SetDefault("allowed_cidrs", "")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("trust_proxy", true)
	v.SetDefault("login_rate_limit", 10)

	return v
}

func (c *Config) validate() {
	switch c.Backend {
	case BackendRedis:
		if c.RedisAddr == "" {
			panic("❌ FATAL: SMARTMARK_REDIS_ADDR is required when SMARTMARK_BACKEND=redis")
		}
		// Validate Redis password configuration
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			panic("❌ FATAL: SMARTMARK_REDIS_PASSWORD is required when SMARTMARK_REDIS_PASSWORD_REQUIRED=true")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			panic("❌ FATAL: SMARTMARK_SQLITE_PATH is required when SMARTMARK_BACKEND=sqlite")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown backend %q (want redis or sqlite)", c.Backend))
	}

	if len(c.JWTSecret) < 16 {
		panic("❌ FATAL: SMARTMARK_JWT_SECRET must be at least 16 characters")
	}
	if c.LoginRateLimit <= 0 {
		panic(fmt.Sprintf("❌ FATAL: invalid login rate limit %d", c.LoginRateLimit))
	}
}

// helpers
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func requireString(v *viper.Viper, key string) string {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		panic(fmt.Sprintf("❌ FATAL: Required setting %s (%s) is not set", key, envName(key)))
	}
	return s
}

func mustDuration(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		panic(fmt.Sprintf("❌ FATAL: Invalid duration for %s: %q", envName(key), raw))
	}
	return d
}

// stringSlice accepts either a YAML list or a comma separated string.
func stringSlice(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return splitAndTrim(raw)
	case []string:
		return splitAndTrim(strings.Join(raw, ","))
	case []interface{}:
		parts := make([]string, 0, len(raw))
		for _, p := range raw {
			parts = append(parts, fmt.Sprint(p))
		}
		return splitAndTrim(strings.Join(parts, ","))
	default:
		return nil
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
