// Package config loads settings from defaults, an optional YAML file, and
// GPS_SURGERY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	WindowHours float64       `mapstructure:"window_hours"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	FFprobe     string        `mapstructure:"ffprobe"`
	FFmpeg      string        `mapstructure:"ffmpeg"`
	Exiftool    string        `mapstructure:"exiftool"`
	MediaRoot   string        `mapstructure:"media_root"`

	Log      LogConfig      `mapstructure:"log"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// GeocoderConfig controls the Nominatim client.
type GeocoderConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Rate      int           `mapstructure:"rate"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GPS_SURGERY"

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("window_hours", 1.0)
	v.SetDefault("tool_timeout", 2*time.Minute)
	v.SetDefault("ffprobe", "ffprobe")
	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("exiftool", "")
	v.SetDefault("media_root", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("geocoder.url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "media-gps-surgery")
	v.SetDefault("geocoder.rate", 1)
	v.SetDefault("geocoder.timeout", 10*time.Second)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultPath is ~/.media-gps-surgery/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".media-gps-surgery", "config.yaml")
}

// Load reads path (or the default path when empty) into v and decodes the
// result. A missing default file is not an error; a missing explicit one is.
func Load(v *viper.Viper, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}
	return Decode(v)
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.WindowHours < 0 {
		return fmt.Errorf("window_hours must not be negative, got %v", c.WindowHours)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive, got %v", c.ToolTimeout)
	}
	if c.Geocoder.Rate <= 0 {
		return fmt.Errorf("geocoder.rate must be positive, got %d", c.Geocoder.Rate)
	}
	return nil
}

// Window returns WindowHours as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowHours * float64(time.Hour))
}
