package cache

import "time"

type Config struct {
	URL      string `json:"url,omitempty"       yaml:"url,omitempty"       koanf:"url"`
	Host     string `json:"host,omitempty"      yaml:"host,omitempty"      koanf:"host"`
	Port     string `json:"port,omitempty"      yaml:"port,omitempty"      koanf:"port"`
	Password string `json:"password,omitempty"  yaml:"password,omitempty"  koanf:"password"`
	DB       int    `json:"db,omitempty"        yaml:"db,omitempty"        koanf:"db"`
	PoolSize int    `json:"pool_size,omitempty" yaml:"pool_size,omitempty" koanf:"pool_size"`
	// Timeout Configuration
	DialTimeout  time.Duration `json:"dial_timeout,omitempty"  yaml:"dial_timeout,omitempty"  koanf:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout,omitempty"  yaml:"read_timeout,omitempty"  koanf:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty" koanf:"write_timeout"`
	PingTimeout  time.Duration `json:"ping_timeout,omitempty"  yaml:"ping_timeout,omitempty"  koanf:"ping_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:        "localhost",
		Port:        "6379",
		PingTimeout: 10 * time.Second,
	}
}
