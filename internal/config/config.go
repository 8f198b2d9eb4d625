// internal/config/config.go
// Loads relay configuration from defaults, an optional config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/erilali/chatrelay/internal/logger"
	"github.com/erilali/chatrelay/internal/message"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHAT"

type Config struct {
	Host              string           `mapstructure:"host"`
	Port              int              `mapstructure:"port"`
	AllowedOrigins    []string         `mapstructure:"allowed_origins"`
	HistorySize       int              `mapstructure:"history_size"`
	MaxMessageLength  int              `mapstructure:"max_message_length"`
	SendBuffer        int              `mapstructure:"send_buffer"`
	NatsURL           string           `mapstructure:"nats_url"`
	NatsSubjectPrefix string           `mapstructure:"nats_subject_prefix"`
	ShutdownTimeout   time.Duration    `mapstructure:"shutdown_timeout"`
	Log               logger.LogConfig `mapstructure:"log"`
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func setDefaults(v *viper.Viper) {
	logDefaults := logger.DefaultLogConfig()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3005)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("history_size", 20)
	v.SetDefault("max_message_length", 1000)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject_prefix", "chat")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.to_file", logDefaults.LogToFile)
	v.SetDefault("log.json", logDefaults.LogToJSON)
	v.SetDefault("log.file_path", logDefaults.FilePath)
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.compress", logDefaults.Compress)
}

// Load reads configuration. path may be empty; a path that does not exist is
// ignored so the relay can start on defaults alone. Environment variables
// CHAT_<KEY> (dots become underscores) override the file, and the bare PORT
// variable overrides everything. The bind host is only read from host or
// CHAT_HOST since many shells export HOST as the machine name.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		v.Set("port", port)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	// Comma separated lists from the environment arrive as a single element.
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}
	if c.MaxMessageLength < 0 || c.MaxMessageLength > message.MaxTextLength {
		return fmt.Errorf("max_message_length must be between 0 and %d, got %d",
			message.MaxTextLength, c.MaxMessageLength)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	return nil
}
