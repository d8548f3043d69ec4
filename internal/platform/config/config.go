package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 秘密情報は設定ファイルより環境変数を優先します。
const (
	EnvJWTSecret  = "SHIFTBOARD_JWT_SECRET"
	EnvDBPassword = "SHIFTBOARD_DB_PASSWORD"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	minJWTSecretLength = 32
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	GRPCListenAddr     string        `yaml:"grpc_listen_addr"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout"`
	WriteTimeoutRaw    string        `yaml:"write_timeout"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
	LoginRatePerSec    float64       `yaml:"login_rate_per_sec"`
	LoginBurst         int           `yaml:"login_burst"`
	// TrustProxy はリバースプロキシ配下で転送ヘッダーを接続元として扱う場合に true にします。
	TrustProxy         bool          `yaml:"trust_proxy"`
}

// DatabaseConfig は永続化層に関する設定です。driver が memory の場合は接続情報を無視します。
type DatabaseConfig struct {
	Driver             string        `yaml:"driver"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	SeedDemo           bool          `yaml:"seed_demo"`
	SerializableWrites bool          `yaml:"serializable_writes"`
	TxMaxAttempts      int           `yaml:"tx_max_attempts"`
}

// AuthConfig はトークン発行とログインに関する設定です。
type AuthConfig struct {
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenTTL       time.Duration  `yaml:"-"`
	TokenTTLRaw    string         `yaml:"token_ttl"`
	BootstrapAdmin BootstrapAdmin `yaml:"bootstrap_admin"`
}

// BootstrapAdmin は起動時に用意する管理者アカウントです。username が空なら作成しません。
type BootstrapAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled は管理者アカウントの作成が設定されているかを返します。
func (b BootstrapAdmin) Enabled() bool {
	return strings.TrimSpace(b.Username) != ""
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnv(lookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}
	if v, ok := lookupEnv(EnvJWTSecret); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookupEnv(EnvDBPassword); ok && v != "" {
		c.Database.Password = v
	}
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
		return fmt.Errorf("config: server.listen_addr: %w", err)
	}
	if s.GRPCListenAddr != "" {
		if _, _, err := net.SplitHostPort(s.GRPCListenAddr); err != nil {
			return fmt.Errorf("config: server.grpc_listen_addr: %w", err)
		}
	}

	var err error
	if s.ReadTimeout, err = parseDurationDefault(s.ReadTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if s.WriteTimeout, err = parseDurationDefault(s.WriteTimeoutRaw, 15*time.Second); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	if s.ShutdownTimeout, err = parseDurationDefault(s.ShutdownTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}

	if s.LoginRatePerSec < 0 {
		return fmt.Errorf("config: server.login_rate_per_sec must not be negative")
	}
	if s.LoginRatePerSec == 0 {
		s.LoginRatePerSec = 5
	}
	if s.LoginBurst <= 0 {
		s.LoginBurst = 10
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("config: database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, d.Driver)
	}

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

	if d.TxMaxAttempts < 0 {
		return fmt.Errorf("config: database.tx_max_attempts must not be negative")
	}
	if d.TxMaxAttempts == 0 {
		d.TxMaxAttempts = 3
	}

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if len(a.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("config: auth.jwt_secret must be at least %d bytes (or set %s)", minJWTSecretLength, EnvJWTSecret)
	}
	ttl, err := parseDurationDefault(a.TokenTTLRaw, 8*time.Hour)
	if err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("config: auth.token_ttl must be positive")
	}
	a.TokenTTL = ttl

	if a.BootstrapAdmin.Enabled() && a.BootstrapAdmin.Password == "" {
		return fmt.Errorf("config: auth.bootstrap_admin.password must be set when username is set")
	}
	return nil
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

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationAllowEmpty(raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報は URL エスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
