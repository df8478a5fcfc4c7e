// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL pública (detrás del proxy) usada para armar links de
		// verificación y reset en los emails.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Driver string `yaml:"driver"`
		Prefix string `yaml:"prefix"`
		Redis  struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Auth struct {
		// TokenTTL vida de los access tokens opacos.
		TokenTTL time.Duration `yaml:"token_ttl"`
		// LockoutThreshold fallos consecutivos que bloquean la cuenta.
		// 0 = lockout deshabilitado; ausente = default (5).
		LockoutThreshold *int `yaml:"lockout_threshold"`
		Reset            struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"reset"`
		Verify struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"verify"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Forgot struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"forgot"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`

	Admin struct {
		// APIKey protege /admin. Vacía = rutas admin deshabilitadas.
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Events struct {
		Workers int `yaml:"workers"`
		Buffer  int `yaml:"buffer"`
	} `yaml:"events"`
}

// Load lee el YAML del path (opcional: "" usa solo defaults + env) y
// aplica overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxOpenConns == 0 {
		c.Storage.Postgres.MaxOpenConns = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "iridium:"
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Auth.LockoutThreshold == nil {
		def := 5
		c.Auth.LockoutThreshold = &def
	}
	if c.Auth.Reset.TTL == 0 {
		c.Auth.Reset.TTL = 60 * time.Minute
	}
	if c.Auth.Verify.TTL == 0 {
		c.Auth.Verify.TTL = 24 * time.Hour
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == "" {
		c.Rate.Forgot.Window = "10m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
	}
	if c.Events.Workers == 0 {
		c.Events.Workers = 2
	}
	if c.Events.Buffer == 0 {
		c.Events.Buffer = 256
	}

	c.applyEnvOverrides()

	// validate string durations
	for _, w := range []string{c.Rate.Login.Window, c.Rate.Forgot.Window} {
		if w != "" {
			if _, err := time.ParseDuration(w); err != nil {
				return nil, fmt.Errorf("config: rate window %q: %w", w, err)
			}
		}
	}

	return &c, nil
}

// LoginWindow retorna la ventana de rate limit de login ya parseada.
func (c *Config) LoginWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Login.Window)
	return d
}

// ForgotWindow retorna la ventana de rate limit de forgot ya parseada.
func (c *Config) ForgotWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Forgot.Window)
	return d
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("REDIS_HOST"); ok {
		c.Cache.Redis.Host = v
	}
	if v, ok := getEnvInt("REDIS_PORT"); ok {
		c.Cache.Redis.Port = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	if v, ok := getEnvDur("AUTH_TOKEN_TTL"); ok {
		c.Auth.TokenTTL = v
	}
	if v, ok := getEnvInt("AUTH_LOCKOUT_THRESHOLD"); ok {
		c.Auth.LockoutThreshold = &v
	}
	if v, ok := getEnvDur("AUTH_RESET_TTL"); ok {
		c.Auth.Reset.TTL = v
	}
	if v, ok := getEnvDur("AUTH_VERIFY_TTL"); ok {
		c.Auth.Verify.TTL = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}

	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
