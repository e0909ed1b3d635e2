package config

import (
	"time"

	"github.com/genflow/genflow/engine/infra/cache"
	"github.com/genflow/genflow/pkg/logger"
)

// Config is the root configuration for the generation engine.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Server     ServerConfig     `koanf:"server"`
	Redis      cache.Config     `koanf:"redis"`
	Provider   ProviderConfig   `koanf:"provider"`
	Queue      QueueConfig      `koanf:"queue"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Moderation ModerationConfig `koanf:"moderation"`
	Agent      AgentConfig      `koanf:"agent"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ProviderConfig names the default generation model. The API key comes from
// the environment only.
type ProviderConfig struct {
	Name    string `koanf:"name"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type LogConfig struct {
	Level logger.LogLevel `koanf:"level"`
	JSON  bool            `koanf:"json"`
}

type QueueConfig struct {
	BufferSize    int           `koanf:"buffer_size"`
	ItemWait      time.Duration `koanf:"item_wait"`
	ListenTimeout time.Duration `koanf:"listen_timeout"`
	StopFlagTTL   time.Duration `koanf:"stop_flag_ttl"`
}

type PipelineConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
}

type ModerationConfig struct {
	Enabled       bool          `koanf:"enabled"`
	CheckInterval time.Duration `koanf:"check_interval"`
	MinLength     int           `koanf:"min_length"`
}

type AgentConfig struct {
	MaxIterations int     `koanf:"max_iterations"`
	Temperature   float64 `koanf:"temperature"`
	RetryAttempts uint64  `koanf:"retry_attempts"`
}

// Default returns the baseline configuration environment variables override.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: logger.InfoLevel},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5001,
			ShutdownTimeout: 10 * time.Second,
		},
		Provider: ProviderConfig{
			Name:  "openai",
			Model: "gpt-4o-mini",
		},
		Redis: cache.Config{
			Host:        "localhost",
			Port:        "6379",
			PingTimeout: 10 * time.Second,
		},
		Queue: QueueConfig{
			BufferSize:    128,
			ItemWait:      time.Second,
			ListenTimeout: 10 * time.Minute,
			StopFlagTTL:   10 * time.Minute,
		},
		Pipeline: PipelineConfig{HeartbeatInterval: 10 * time.Second},
		Moderation: ModerationConfig{
			CheckInterval: 300 * time.Millisecond,
			MinLength:     20,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			Temperature:   0.2,
			RetryAttempts: 2,
		},
	}
}
