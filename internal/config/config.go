package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Session   SessionConfig   `mapstructure:"session"`
	Sync      SyncConfig      `mapstructure:"sync"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admins    []AdminConfig   `mapstructure:"admins"`
	Demo      DemoConfig      `mapstructure:"demo"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SessionConfig struct {
	CookieName   string        `mapstructure:"cookie_name"`
	TTL          time.Duration `mapstructure:"ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type SyncConfig struct {
	// TTL is the staleness window: a directory cache miss only
	// triggers a resync once the last sync is older than this.
	TTL time.Duration `mapstructure:"ttl"`
	// SaveQueueSize bounds the async persister backlog.
	SaveQueueSize int `mapstructure:"save_queue_size"`
	// SaveRetries is how often a failed row-store save is retried
	// before it is dropped with an error log.
	SaveRetries int `mapstructure:"save_retries"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type AdminConfig struct {
	ID       string `mapstructure:"id"`
	Email    string `mapstructure:"email"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type DemoConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (VBASE_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (VBASE_*)
	v.SetEnvPrefix("VBASE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
