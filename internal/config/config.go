package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string   `mapstructure:"addr"`
	StaticDir      string   `mapstructure:"static_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`

	ReadLimit     int64         `mapstructure:"read_limit"`
	PongWait      time.Duration `mapstructure:"pong_wait"`
	SendQueueSize int           `mapstructure:"send_queue_size"`

	MaxMessageSize    int     `mapstructure:"max_message_size"`
	MaxCanvases       int     `mapstructure:"max_canvases"`
	MaxCanvasMembers  int     `mapstructure:"max_canvas_members"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// Load reads config/config.<env>.yaml when present and falls back to
// defaults, with CANVASSYNC_* environment variables taking precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	v.SetConfigFile(fmt.Sprintf("config/config.%s.yaml", env))

	v.SetEnvPrefix("CANVASSYNC")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("static_dir", "./frontend")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("send_queue_size", 256)
	v.SetDefault("max_message_size", 16384)
	v.SetDefault("max_canvases", 1000)
	v.SetDefault("max_canvas_members", 50)
	v.SetDefault("messages_per_second", 60)
	v.SetDefault("burst_size", 20)

	// Config file is optional; defaults plus environment are enough.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
