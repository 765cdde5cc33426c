package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server         ServerConfig                   `yaml:"server"`
	GRPC           GRPCConfig                     `yaml:"grpc"`
	Database       DatabaseConfig                 `yaml:"database"`
	Redis          RedisConfig                    `yaml:"redis"`
	Kafka          KafkaConfig                    `yaml:"kafka"`
	JWT            JWTConfig                      `yaml:"jwt"`
	Security       SecurityConfig                 `yaml:"security"`
	Sessions       SessionConfig                  `yaml:"sessions"`
	Linking        LinkingConfig                  `yaml:"linking"`
	Authorization  AuthorizationConfig            `yaml:"authorization"`
	OAuthProviders map[string]OAuthProviderConfig `yaml:"oauth_providers"`
	Logging        LoggingConfig                  `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
	CookieDomain    string        `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`
	CookieSecure    bool          `yaml:"cookie_secure" env:"COOKIE_SECURE" env-default:"true"`
}

type GRPCConfig struct {
	Enabled bool `yaml:"enabled" env:"GRPC_ENABLED" env-default:"true"`
	Port    int  `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"auth"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"portfolio_auth"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

// DSN builds the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"auth.events"`
	Source  string   `yaml:"source" env-default:"/portfolio/auth-service"`
}

type JWTConfig struct {
	Secret          string        `yaml:"secret" env:"JWT_SECRET"`
	Issuer          string        `yaml:"issuer" env-default:"portfolio-auth-service"`
	Audience        string        `yaml:"audience" env-default:"portfolio-platform"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-default:"1h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

type SecurityConfig struct {
	LockoutThreshold     int           `yaml:"lockout_threshold" env-default:"5"`
	LockoutDuration      time.Duration `yaml:"lockout_duration" env-default:"15m"`
	VerificationTokenTTL time.Duration `yaml:"verification_token_ttl" env-default:"24h"`

	Argon2Memory         uint32        `yaml:"argon2_memory" env-default:"65536"`
	Argon2Iterations     uint32        `yaml:"argon2_iterations" env-default:"3"`
	Argon2Threads        uint8         `yaml:"argon2_threads" env-default:"2"`
	Argon2SaltLen        uint32        `yaml:"argon2_salt_len" env-default:"16"`
	Argon2KeyLen         uint32        `yaml:"argon2_key_len" env-default:"32"`
}

type SessionConfig struct {
	MaxPerUser       int           `yaml:"max_per_user" env-default:"5"`
	Timeout          time.Duration `yaml:"timeout" env-default:"720h"`
	SlidingThreshold time.Duration `yaml:"sliding_threshold" env-default:"15m"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" env-default:"1h"`
	CacheTTL         time.Duration `yaml:"cache_ttl" env-default:"5m"`
}

type LinkingConfig struct {
	ConflictTokenTTL time.Duration `yaml:"conflict_token_ttl" env-default:"10m"`
}

// AuthorizationConfig carries the declarative role→permission table. Loading
// it here keeps the mapping auditable apart from the logic that consumes it.
type AuthorizationConfig struct {
	Roles       map[string][]string `yaml:"roles"`
	DefaultRole string              `yaml:"default_role" env-default:"user"`
}

type OAuthProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"user_info_url"`
	Scopes       []string `yaml:"scopes"`
	DisplayName  string   `yaml:"display_name"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Environment string `yaml:"environment" env:"APP_ENV" env-default:"development"`
}

// Load reads configuration from the given YAML file (if present) and the
// environment. A .env file is honored in development.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return &cfg, cfg.validate()
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if len(c.Authorization.Roles) == 0 {
		c.Authorization.Roles = DefaultRolePermissions()
	}
	return nil
}

// DefaultRolePermissions is the seed role→permission table: admin ⊇ manager
// ⊇ user, strictly additive.
func DefaultRolePermissions() map[string][]string {
	user := []string{
		"portfolio:read", "portfolio:write",
		"projects:read", "projects:write",
		"skills:read", "skills:write",
		"profile:read", "profile:write",
	}
	manager := append(append([]string{}, user...),
		"portfolio:manage", "users:read",
	)
	admin := append(append([]string{}, manager...),
		"users:manage", "clients:manage", "scopes:manage", "permissions:manage",
	)
	return map[string][]string{
		"user":    user,
		"manager": manager,
		"admin":   admin,
	}
}
