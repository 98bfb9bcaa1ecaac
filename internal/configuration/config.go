package configuration

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/logger"
)

type Config struct {
	ServerAddress    string
	RedisURI         string
	EvaluateInterval time.Duration
	HistoryWindow    int64
	CronSecret       string
	RadarAPIKey      string
	ResendAPIKey     string
	AlertEmailFrom   string
	SiteURL          string
	LogLevel         logger.Level
	LogToFile        bool
}

type tomlConfig struct {
	ServerAddress    string `toml:"server_address"`
	RedisURI         string `toml:"redis_uri"`
	EvaluateInterval string `toml:"evaluate_interval"`
	HistoryWindow    int64  `toml:"history_window"`
	CronSecret       string `toml:"cron_secret"`
	RadarAPIKey      string `toml:"radar_api_key"`
	ResendAPIKey     string `toml:"resend_api_key"`
	AlertEmailFrom   string `toml:"alert_email_from"`
	SiteURL          string `toml:"site_url"`
	LogLevel         string `toml:"log_level"`
	LogToFile        bool   `toml:"log_to_file"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8888"
	}

	if tc.RedisURI == "" {
		tc.RedisURI = "redis://localhost:6379"
	}

	// An empty evaluate_interval disables the internal ticker, the evaluation
	// pass is then only reachable through the cron endpoint.
	var evaluateInterval time.Duration
	if tc.EvaluateInterval != "" {
		evaluateInterval, err = time.ParseDuration(tc.EvaluateInterval)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse evaluate_interval: %s", tc.EvaluateInterval)
		}
		if evaluateInterval < 15*time.Second {
			return nil, errors.Errorf("evaluate_interval too short (%v), minimum interval: 15s", evaluateInterval)
		}
	}

	if tc.HistoryWindow == 0 {
		tc.HistoryWindow = 200
	}
	if tc.HistoryWindow < 0 {
		return nil, errors.Errorf("history_window is negative: %d", tc.HistoryWindow)
	}

	if tc.CronSecret == "" {
		return nil, errors.New("cron_secret is not set")
	}

	if tc.RadarAPIKey == "" {
		return nil, errors.New("radar_api_key is not set")
	}

	if tc.AlertEmailFrom == "" {
		tc.AlertEmailFrom = "RigRadar Alerts <alerts@rigradarai.com>"
	}

	if tc.SiteURL == "" {
		tc.SiteURL = "https://rigradarai.com"
	}

	if tc.LogLevel == "" {
		tc.LogLevel = "INFO"
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse log_level")
	}

	return &Config{
		ServerAddress:    tc.ServerAddress,
		RedisURI:         tc.RedisURI,
		EvaluateInterval: evaluateInterval,
		HistoryWindow:    tc.HistoryWindow,
		CronSecret:       tc.CronSecret,
		RadarAPIKey:      tc.RadarAPIKey,
		ResendAPIKey:     tc.ResendAPIKey,
		AlertEmailFrom:   tc.AlertEmailFrom,
		SiteURL:          tc.SiteURL,
		LogLevel:         logLevel,
		LogToFile:        tc.LogToFile,
	}, nil
}
