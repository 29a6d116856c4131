package config

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string `yaml:"env" env:"APP_ENV" env-default:"dev"`
	BaseDir string `yaml:"base_dir" env:"BASE_DIR" env-default:"./data"`

	Telegram TelegramConfig `yaml:"telegram"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Watch    WatchConfig    `yaml:"watch"`
	Geo      GeoConfig      `yaml:"geo"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
}

// TelegramConfig carries the API credentials. Both values are optional here:
// when unset, the client start is gated on credentials in the shared store.
type TelegramConfig struct {
	APIID   int32  `yaml:"api_id" env:"TELEGRAM_API_ID"`
	APIHash string `yaml:"api_hash" env:"TELEGRAM_API_HASH"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
}

type WatchConfig struct {
	Addr string `yaml:"addr" env:"WATCH_ADDR" env-default:":8090"`
}

type GeoConfig struct {
	URL     string        `yaml:"url" env:"GEO_URL"`
	Timeout time.Duration `yaml:"timeout" env:"GEO_TIMEOUT" env-default:"5s"`
}

type MailboxConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"MAILBOX_POLL_INTERVAL" env-default:"2s"`
}

// apiHashLen is the length of a Telegram API hash as issued by my.telegram.org.
const apiHashLen = 32

// Load reads the optional YAML config file and the environment.
// Priority for the file path: -config flag > CONFIG_PATH env > none.
func Load() (*Config, error) {
	var cfg Config

	path := fetchConfigPath()
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.APIHash != "" && len(c.Telegram.APIHash) != apiHashLen {
		return fmt.Errorf("TELEGRAM_API_HASH must be %d characters, got %d", apiHashLen, len(c.Telegram.APIHash))
	}
	if c.Geo.Timeout <= 0 {
		return fmt.Errorf("GEO_TIMEOUT must be > 0")
	}
	if c.Mailbox.PollInterval <= 0 {
		return fmt.Errorf("MAILBOX_POLL_INTERVAL must be > 0")
	}
	return nil
}

// CredentialsConfigured reports whether the config alone carries a usable
// credential pair.
func (c *Config) CredentialsConfigured() bool {
	return c.Telegram.APIID != 0 && len(c.Telegram.APIHash) == apiHashLen
}

var (
	flagOnce sync.Once
	flagPath string
)

func fetchConfigPath() string {
	flagOnce.Do(func() {
		flag.StringVar(&flagPath, "config", "", "path to config file")
		flag.Parse()
	})

	if flagPath == "" {
		return os.Getenv("CONFIG_PATH")
	}
	return flagPath
}
