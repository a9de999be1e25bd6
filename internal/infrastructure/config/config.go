// Package config loads the backend configuration from config.toml and
// PARTIES_-prefixed environment variables, with sane development
// defaults for everything that is not a secret.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Mail      MailConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// BaseURL is the externally reachable URL used when building
	// magic-link verification URLs (e.g. "https://templeparties.com")
	BaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty Host means
// Redis is not configured and magic links are held in memory.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// AuthConfig holds magic-link authentication settings
type AuthConfig struct {
	// AllowedEmailDomain restricts signup to campus addresses
	AllowedEmailDomain string
	MagicLinkTTL       time.Duration
	// AdminEmails are promoted to admin on first sign-in
	AdminEmails []string
}

// MailConfig holds outgoing mail settings for magic links.
// Driver "log" writes links to the application log instead of sending,
// which is the development default.
type MailConfig struct {
	Driver   string // log, smtp
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// The auth endpoints get a stricter limit to keep the mailer from
	// being used as a spam cannon
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration

	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0 to 1.0
	ServiceName       string
	Insecure          bool // non-TLS collector connection, development only
	DBTraceEnabled    bool // otelgorm query spans
	MetricsEnabled    bool
	MetricsInterval   time.Duration
}

// Load reads config.toml (if present) and applies PARTIES_ environment
// overrides on top, e.g. PARTIES_DATABASE_PASSWORD for
// database.password. Empty and zero values fall back to the defaults
// baked into the section loaders below.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, env vars and defaults carry it
	}

	v.SetEnvPrefix("PARTIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App:       loadApp(v),
		Database:  loadDatabase(v),
		Redis:     loadRedis(v),
		JWT:       loadJWT(v),
		Auth:      loadAuth(v),
		Mail:      loadMail(v),
		Log:       loadLog(v),
		HTTP:      loadHTTP(v),
		Telemetry: loadTelemetry(v),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// str reads a string key, substituting def when unset or empty.
func str(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

// num reads an int key, treating zero as unset.
func num(v *viper.Viper, key string, def int) int {
	if n := v.GetInt(key); n != 0 {
		return n
	}
	return def
}

// dur reads a duration key, treating zero as unset.
func dur(v *viper.Viper, key string, def time.Duration) time.Duration {
	if d := v.GetDuration(key); d != 0 {
		return d
	}
	return def
}

// strs reads a string slice key, substituting def when empty.
func strs(v *viper.Viper, key string, def []string) []string {
	if s := v.GetStringSlice(key); len(s) > 0 {
		return s
	}
	return def
}

func loadApp(v *viper.Viper) AppConfig {
	port := str(v, "app.port", "8080")
	return AppConfig{
		Name:    str(v, "app.name", "parties-backend"),
		Env:     str(v, "app.env", "development"),
		Port:    port,
		BaseURL: str(v, "app.base_url", "http://localhost:"+port),
	}
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:            str(v, "database.host", "localhost"),
		Port:            num(v, "database.port", 5432),
		User:            str(v, "database.user", "postgres"),
		Password:        v.GetString("database.password"),
		DBName:          str(v, "database.dbname", "parties"),
		SSLMode:         str(v, "database.sslmode", "disable"),
		MaxOpenConns:    num(v, "database.max_open_conns", 25),
		MaxIdleConns:    num(v, "database.max_idle_conns", 5),
		ConnMaxLifetime: num(v, "database.conn_max_lifetime", 60),
		ConnMaxIdleTime: num(v, "database.conn_max_idle_time", 30),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	// No host default: leaving it unset selects the in-memory magic
	// link store
	return RedisConfig{
		Host:     v.GetString("redis.host"),
		Port:     num(v, "redis.port", 6379),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func loadJWT(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:                 v.GetString("jwt.secret"),
		RefreshSecret:          v.GetString("jwt.refresh_secret"),
		AccessTokenExpiration:  dur(v, "jwt.access_token_expiration", 15*time.Minute),
		RefreshTokenExpiration: dur(v, "jwt.refresh_token_expiration", 168*time.Hour),
		Issuer:                 str(v, "jwt.issuer", "parties-backend"),
		MaxRefreshCount:        num(v, "jwt.max_refresh_count", 10),
	}
}

func loadAuth(v *viper.Viper) AuthConfig {
	return AuthConfig{
		AllowedEmailDomain: str(v, "auth.allowed_email_domain", "temple.edu"),
		MagicLinkTTL:       dur(v, "auth.magic_link_ttl", 15*time.Minute),
		AdminEmails:        v.GetStringSlice("auth.admin_emails"),
	}
}

func loadMail(v *viper.Viper) MailConfig {
	return MailConfig{
		Driver:   str(v, "mail.driver", "log"),
		Host:     v.GetString("mail.host"),
		Port:     num(v, "mail.port", 587),
		Username: v.GetString("mail.username"),
		Password: v.GetString("mail.password"),
		From:     str(v, "mail.from", "no-reply@templeparties.com"),
	}
}

func loadLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  str(v, "log.level", "info"),
		Format: str(v, "log.format", "console"),
		Output: str(v, "log.output", "stdout"),
	}
}

func loadHTTP(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		ReadTimeout:    dur(v, "http.read_timeout", 15*time.Second),
		WriteTimeout:   dur(v, "http.write_timeout", 15*time.Second),
		IdleTimeout:    dur(v, "http.idle_timeout", 60*time.Second),
		MaxHeaderBytes: num(v, "http.max_header_bytes", 1<<20),
		// Listings are small, 1MB of body is plenty
		MaxBodySize: int64(num(v, "http.max_body_size", 1<<20)),

		RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
		RateLimitRequests:     num(v, "http.rate_limit_requests", 100),
		RateLimitWindow:       dur(v, "http.rate_limit_window", time.Minute),
		AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
		AuthRateLimitRequests: num(v, "http.auth_rate_limit_requests", 5),
		AuthRateLimitWindow:   dur(v, "http.auth_rate_limit_window", time.Minute),

		// Origins get no "*" fallback: an empty list means no
		// cross-origin requests until explicitly configured
		CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods: strs(v, "http.cors_allow_methods",
			[]string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}),
		CORSAllowHeaders: strs(v, "http.cors_allow_headers",
			[]string{"Content-Type", "Authorization", "X-Request-ID"}),
		TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
	}
}

func loadTelemetry(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:           v.GetBool("telemetry.enabled"),
		CollectorEndpoint: str(v, "telemetry.collector_endpoint", "localhost:4317"),
		SamplingRatio:     loadSamplingRatio(v),
		ServiceName:       str(v, "telemetry.service_name", "parties-backend"),
		Insecure:          v.GetBool("telemetry.insecure"),
		DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
		MetricsInterval:   dur(v, "telemetry.metrics_interval", 30*time.Second),
	}
}

func loadSamplingRatio(v *viper.Viper) float64 {
	if r := v.GetFloat64("telemetry.sampling_ratio"); r != 0 {
		return r
	}
	// Sample everything by default; production tunes this down
	return 1.0
}

// validate rejects configurations that would misbehave at runtime, and
// holds production to a stricter standard than development.
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Mail.Driver {
	case "log", "smtp":
	default:
		return fmt.Errorf("mail.driver must be 'log' or 'smtp', got %q", c.Mail.Driver)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters in production")
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("jwt.refresh_secret is required in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	if c.Mail.Driver == "log" {
		return fmt.Errorf("mail.driver 'log' is not allowed in production, configure smtp")
	}
	if !strings.HasPrefix(c.App.BaseURL, "https://") {
		return fmt.Errorf("app.base_url must use https in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
