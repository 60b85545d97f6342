package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是客户端全局配置。
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Playback PlaybackConfig `yaml:"playback"`
	Session  SessionConfig  `yaml:"session"`
}

type BackendConfig struct {
	// BaseURL 是模拟后端的 HTTP 地址，如 http://127.0.0.1:8000。
	BaseURL string `yaml:"base_url"`
	// WSBaseURL 是推送通道地址，如 ws://127.0.0.1:8000。
	WSBaseURL string `yaml:"ws_base_url"`
	// RequestTimeout 是出站请求的中止计时，对齐最坏情况生成时延。
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type PlaybackConfig struct {
	// PollInterval 是预载未就绪时的重查间隔（几十毫秒量级）。
	PollInterval time.Duration `yaml:"poll_interval"`
	// SimLoadDelay / SimClipDuration 供合成媒体元素联调使用。
	SimLoadDelay    time.Duration `yaml:"sim_load_delay"`
	SimClipDuration time.Duration `yaml:"sim_clip_duration"`
}

type SessionConfig struct {
	InitialPrompt string `yaml:"initial_prompt"`
	DeveloperMode bool   `yaml:"developer_mode"`
}

// Default 返回本地联调可直接使用的缺省配置。
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:8000",
			WSBaseURL:      "ws://127.0.0.1:8000",
			RequestTimeout: 3 * time.Minute,
		},
		Playback: PlaybackConfig{
			PollInterval:    50 * time.Millisecond,
			SimLoadDelay:    200 * time.Millisecond,
			SimClipDuration: 4 * time.Second,
		},
	}
}

// Load 从文件加载配置；path 为空时直接用缺省值。
// 敏感或环境相关的项可以用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// 环境变量覆盖，便于本地快速切换后端。
	if base := os.Getenv("CRISISSIM_BACKEND_URL"); base != "" {
		cfg.Backend.BaseURL = base
	}
	if ws := os.Getenv("CRISISSIM_WS_URL"); ws != "" {
		cfg.Backend.WSBaseURL = ws
	}
	if os.Getenv("CRISISSIM_DEVELOPER_MODE") == "1" {
		cfg.Session.DeveloperMode = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate 验证必需配置。
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if c.Backend.WSBaseURL == "" {
		return fmt.Errorf("backend ws_base_url is required")
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = 3 * time.Minute
	}
	if c.Playback.PollInterval <= 0 {
		c.Playback.PollInterval = 50 * time.Millisecond
	}
	return nil
}
