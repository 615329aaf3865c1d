package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. VENUE_DB_PATH.
const envPrefix = "VENUE"

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	DB        DB        `mapstructure:"db"`
	Store     Store     `mapstructure:"store"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Remote    Remote    `mapstructure:"remote"`
	Identity  Identity  `mapstructure:"identity"`
	Notify    Notify    `mapstructure:"notify"`
	Voice     Voice     `mapstructure:"voice"`
	Admin     Admin     `mapstructure:"admin"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

// Store selects the tree store backend: "sqlite" or "memory".
type Store struct {
	Driver string `mapstructure:"driver"`
}

type Scheduler struct {
	Interval time.Duration `mapstructure:"interval"`
	Workers  int           `mapstructure:"workers"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Timezone string        `mapstructure:"timezone"`
}

// Location resolves Timezone; empty or "Local" means the host zone.
func (s Scheduler) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type Remote struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Identity struct {
	APIKey     string `mapstructure:"api_key"`
	ProjectID  string `mapstructure:"project_id"`
	SignInURL  string `mapstructure:"sign_in_url"`
	SignUpURL  string `mapstructure:"sign_up_url"`
	RefreshURL string `mapstructure:"refresh_url"`
	CertsURL   string `mapstructure:"certs_url"`
}

type Notify struct {
	Endpoint  string `mapstructure:"endpoint"`
	ServerKey string `mapstructure:"server_key"`
}

type Voice struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Admin struct {
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	SigningKey string `mapstructure:"signing_key"`
}

type Metrics struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addr      string   `mapstructure:"addr"`
	Namespace string   `mapstructure:"namespace"`
	Tags      []string `mapstructure:"tags"`
}

var defaults = map[string]any{
	"port":      "8080",
	"log_level": "info",
	"log_file":  "",

	"db.path":      "app.db",
	"store.driver": "sqlite",

	"scheduler.interval": "5s",
	"scheduler.workers":  4,
	"scheduler.cooldown": "1h",
	"scheduler.timezone": "Local",

	"remote.attempts":   3,
	"remote.base_delay": "1s",
	"remote.timeout":    "5s",

	"identity.api_key":     "",
	"identity.project_id":  "",
	"identity.sign_in_url": "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword",
	"identity.sign_up_url": "https://identitytoolkit.googleapis.com/v1/accounts:signUp",
	"identity.refresh_url": "https://securetoken.googleapis.com/v1/token",
	"identity.certs_url":   "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com",

	"notify.endpoint":   "https://fcm.googleapis.com/fcm/send",
	"notify.server_key": "",

	"voice.endpoint": "https://generativelanguage.googleapis.com/v1/models/gemini-2.0-flash:generateContent",
	"voice.timeout":  "10s",

	"admin.username":    "admin",
	"admin.password":    "",
	"admin.signing_key": "",

	"metrics.enabled":   false,
	"metrics.addr":      "127.0.0.1:8125",
	"metrics.namespace": "venue_control.",
	"metrics.tags":      []string{},
}

// Load reads config.yml from the given directories (first match wins),
// applies defaults and VENUE_* environment overrides. A missing file is not
// an error; the defaults are used.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if c.Scheduler.Interval <= 0 {
		problems = append(problems, "scheduler.interval must be > 0")
	}
	if c.Scheduler.Workers <= 0 {
		problems = append(problems, "scheduler.workers must be > 0")
	}
	if c.Scheduler.Cooldown <= 0 {
		problems = append(problems, "scheduler.cooldown must be > 0")
	}
	if c.Remote.Attempts <= 0 {
		problems = append(problems, "remote.attempts must be > 0")
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, memory", c.Store.Driver))
	}
	if _, err := c.Scheduler.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
