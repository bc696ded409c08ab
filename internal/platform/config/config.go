package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	envPrefix = "SCRIBE_"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	Migrate      bool   `yaml:"migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	Secret        string        `yaml:"secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

type JobsConfig struct {
	// 空文字ならジョブ無効
	ExpireStaleSchedule string        `yaml:"expire_stale_schedule"`
	StaleAfter          time.Duration `yaml:"stale_after"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Redis   RedisConfig    `yaml:"redis"`
	Auth    AuthConfig     `yaml:"auth"`
	Jobs    JobsConfig     `yaml:"jobs"`
	CORS    CORSConfig     `yaml:"cors"`
}

// Load は .env → YAML → 環境変数(SCRIBE_*) の順で設定を組み立てる。
// YAML が無い場合はデフォルト値と環境変数だけで動く。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env の読み込み失敗: %w", err)
	}

	cfg := Default()
	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	default:
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Mode: ModeDev,
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DatabaseConfig{
			Host:         "127.0.0.1",
			Port:         3306,
			DBName:       "scribe",
			MaxOpenConns: 80,
			MaxIdleConns: 20,
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Auth: AuthConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Jobs: JobsConfig{
			ExpireStaleSchedule: "@hourly",
			StaleAfter:          30 * 24 * time.Hour,
		},
		CORS: CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
	}
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret is required")
	}
	if c.Mode == ModeRelease && len(c.Auth.Secret) < 32 {
		return errors.New("auth.secret must be at least 32 bytes in release mode")
	}
	if c.DB.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if c.Jobs.ExpireStaleSchedule != "" && c.Jobs.StaleAfter <= 0 {
		return errors.New("jobs.stale_after must be positive")
	}
	return nil
}

func applyEnv(c *Config) error {
	envString("MODE", &c.Mode)
	envString("SERVER_ADDR", &c.Server.Addr)
	envString("DB_HOST", &c.DB.Host)
	envString("DB_USER", &c.DB.Username)
	envString("DB_PASSWORD", &c.DB.Password)
	envString("DB_NAME", &c.DB.DBName)
	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envString("AUTH_SECRET", &c.Auth.Secret)
	envString("ADMIN_EMAIL", &c.Auth.AdminEmail)
	envString("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	if err := envInt("DB_PORT", &c.DB.Port); err != nil {
		return err
	}
	if err := envInt("REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}
