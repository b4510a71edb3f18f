package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	// 起動時に schema.sql を流す
	Migrate bool `yaml:"migrate"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Cert            string        `yaml:"cert"`
	Key             string        `yaml:"key"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type AuthConfig struct {
	AdminUser         string        `yaml:"admin_user"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
}

type BnFConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	Storage StorageConfig  `yaml:"storage"`
	DB      DatabaseConfig `yaml:"database"`
	Auth    AuthConfig     `yaml:"auth"`
	BnF     BnFConfig      `yaml:"bnf"`
	CORS    CORSConfig     `yaml:"cors"`
}

func Default() Config {
	return Config{
		Mode:    ModeDev,
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Storage: StorageConfig{Driver: DriverMySQL},
		DB: DatabaseConfig{
			Host:         "127.0.0.1",
			Port:         3306,
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{AdminUser: "admin", TokenTTL: 24 * time.Hour},
		BnF:  BnFConfig{BaseURL: "https://catalogue.bnf.fr/api/SRU", Timeout: 10 * time.Second},
		CORS: CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
	}
}

// Load reads the YAML file on top of the defaults, then applies the .env file
// (if any) and CARTEL_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// 設定ファイル無しでも環境変数だけで起動できる
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env は任意。既存の環境変数は上書きしない
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"CARTEL_MODE":                &cfg.Mode,
		"CARTEL_ADDR":                &cfg.Server.Addr,
		"CARTEL_STORAGE_DRIVER":      &cfg.Storage.Driver,
		"CARTEL_DB_HOST":             &cfg.DB.Host,
		"CARTEL_DB_USER":             &cfg.DB.Username,
		"CARTEL_DB_PASSWORD":         &cfg.DB.Password,
		"CARTEL_DB_NAME":             &cfg.DB.DBName,
		"CARTEL_ADMIN_USER":          &cfg.Auth.AdminUser,
		"CARTEL_ADMIN_PASSWORD_HASH": &cfg.Auth.AdminPasswordHash,
		"CARTEL_JWT_SECRET":          &cfg.Auth.JWTSecret,
		"CARTEL_BNF_URL":             &cfg.BnF.BaseURL,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("CARTEL_DB_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARTEL_DB_PORT: %w", err)
		}
		cfg.DB.Port = n
	}
	if v, ok := os.LookupEnv("CARTEL_DB_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CARTEL_DB_MIGRATE: %w", err)
		}
		cfg.DB.Migrate = b
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	switch c.Storage.Driver {
	case DriverMySQL:
		if c.DB.DBName == "" || c.DB.Username == "" {
			return errors.New("database.dbname and database.user are required for the mysql driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or CARTEL_JWT_SECRET) is required")
	}
	if c.Auth.AdminPasswordHash == "" {
		return errors.New("auth.admin_password_hash (or CARTEL_ADMIN_PASSWORD_HASH) is required")
	}
	if c.Mode == ModeRelease && len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 bytes in release mode")
	}
	return nil
}
