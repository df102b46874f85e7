package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"RoboInvestor/internal/model"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Decision parameters live in the
// parameter store, not here.
type Config struct {
	DataSource struct {
		Provider          string        `yaml:"provider" default:"alphavantage" validate:"oneof=alphavantage yahoo mock"`
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"` // overrides the stored alphavantage_api_key
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"5" validate:"min=1"`
		Timeout           time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"data_source"`
	Cache struct {
		Backend string `yaml:"backend" default:"file" validate:"oneof=file memory redis"`
		Dir     string `yaml:"dir" default:"data"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"robo-investor:payload"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/robo_investor.db" validate:"required"`
	} `yaml:"database"`
	Params struct {
		Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite ssm"`
		Prefix     string `yaml:"prefix" default:"/robo-investor/" validate:"startswith=/,endswith=/"`
		Passphrase string `yaml:"passphrase"` // seals sqlite values; ssm encrypts on its own
	} `yaml:"params"`
	Registry struct {
		Backend string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite dynamodb"`
		Table   string `yaml:"table" default:"stocks"`
	} `yaml:"registry"`
	AWS struct {
		Region  string `yaml:"region"`
		Profile string `yaml:"profile"`
	} `yaml:"aws"`
	Account struct {
		StateFile      string  `yaml:"state_file" default:"data/account_state.json"`
		DefaultBalance float64 `yaml:"default_balance" default:"10000"`
	} `yaml:"account"`
	Engine struct {
		Workers int `yaml:"workers" default:"1" validate:"min=1,max=64"`
	} `yaml:"engine"`
	Schedule struct {
		CheckCron string `yaml:"check_cron" default:"0 */15 9-16 * * 1-5"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"check_stock_price.log"`
	} `yaml:"log"`
	Instruments []model.Instrument `yaml:"instruments" validate:"dive"`
	Proxy       string             `yaml:"proxy"`
}

var validate = validator.New()

// Load reads .env, then the YAML file, then environment overrides, then defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := map[string]*string{
		"DATA_PROVIDER":         &cfg.DataSource.Provider,
		"ALPHAVANTAGE_BASE_URL": &cfg.DataSource.BaseURL,
		"ALPHAVANTAGE_API_KEY":  &cfg.DataSource.APIKey,
		"CACHE_BACKEND":         &cfg.Cache.Backend,
		"CACHE_DIR":             &cfg.Cache.Dir,
		"REDIS_ADDR":            &cfg.Cache.Redis.Addr,
		"REDIS_PASSWORD":        &cfg.Cache.Redis.Password,
		"SQLITE_PATH":           &cfg.Database.SQLitePath,
		"PARAMS_BACKEND":        &cfg.Params.Backend,
		"ROBO_PARAM_PASSPHRASE": &cfg.Params.Passphrase,
		"REGISTRY_BACKEND":      &cfg.Registry.Backend,
		"AWS_REGION":            &cfg.AWS.Region,
		"AWS_PROFILE":           &cfg.AWS.Profile,
		"ACCOUNT_STATE_FILE":    &cfg.Account.StateFile,
		"CRON_CHECK":            &cfg.Schedule.CheckCron,
		"TELEGRAM_BOT_TOKEN":    &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &cfg.Telegram.ChatID,
		"METRICS_ADDR":          &cfg.Metrics.Addr,
		"LOG_LEVEL":             &cfg.Log.Level,
		"LOG_OUTPUT":            &cfg.Log.Output,
		"HTTPS_PROXY":           &cfg.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("ENGINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return nil
}
