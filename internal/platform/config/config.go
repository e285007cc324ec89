package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment は開発モードを表します。エラー詳細をレスポンスへ含めます。
	EnvDevelopment = "development"
	// EnvProduction は本番モードを表します。
	EnvProduction = "production"

	envOverrideKey = "HRMS_ENV"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr       string         `yaml:"listen_addr"`
	HealthListenAddr string         `yaml:"health_listen_addr"`
	Environment      string         `yaml:"environment"`
	CORSOrigins      []string       `yaml:"cors_origins"`
	TimezoneName     string         `yaml:"timezone"`
	Location         *time.Location `yaml:"-"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	AutoMigrate        bool          `yaml:"auto_migrate"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// RedisConfig は冪等性キー保存用 Redis の設定です。
type RedisConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	IdempotencyTTL    time.Duration `yaml:"-"`
	LockTTL           time.Duration `yaml:"-"`
	IdempotencyTTLRaw string        `yaml:"idempotency_ttl"`
	LockTTLRaw        string        `yaml:"lock_ttl"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if env := strings.TrimSpace(os.Getenv(envOverrideKey)); env != "" {
		cfg.Server.Environment = env
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment は開発モードかどうかを返します。
func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Redis.validateAndNormalize(); err != nil {
		return err
	}

	c.Log.normalize()
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if s.HealthListenAddr == s.ListenAddr {
		return fmt.Errorf("config: server.health_listen_addr must differ from server.listen_addr")
	}

	switch s.Environment {
	case "":
		s.Environment = EnvProduction
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("config: server.environment %q is not supported", s.Environment)
	}

	if s.TimezoneName == "" {
		s.TimezoneName = "UTC"
	}
	loc, err := time.LoadLocation(s.TimezoneName)
	if err != nil {
		return fmt.Errorf("config: server.timezone: %w", err)
	}
	s.Location = loc

	origins := make([]string, 0, len(s.CORSOrigins))
	for _, o := range s.CORSOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
			return fmt.Errorf("config: server.cors_origins: %q must start with http:// or https://", trimmed)
		}
		origins = append(origins, trimmed)
	}
	s.CORSOrigins = origins

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (r *RedisConfig) validateAndNormalize() error {
	ttl, err := parseDurationAllowEmpty(r.IdempotencyTTLRaw)
	if err != nil {
		return fmt.Errorf("config: redis.idempotency_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	r.IdempotencyTTL = ttl

	lockTTL, err := parseDurationAllowEmpty(r.LockTTLRaw)
	if err != nil {
		return fmt.Errorf("config: redis.lock_ttl: %w", err)
	}
	if lockTTL == 0 {
		lockTTL = 30 * time.Second
	}
	r.LockTTL = lockTTL

	if r.Enabled && r.Addr == "" {
		return fmt.Errorf("config: redis.addr must be set when redis.enabled is true")
	}
	return nil
}

func (l *LogConfig) normalize() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx / golang-migrate 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
