package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	SmartThings SmartThingsConfig `yaml:"smartthings"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig contains REST API server settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SmartThingsConfig contains provider API settings.
type SmartThingsConfig struct {
	BaseAPIURL string   `yaml:"base_api_url"`
	Timeout    Duration `yaml:"timeout"` // HTTP timeout per API request

	// Retry policy for provider calls
	MaxAttempts     int      `yaml:"max_attempts"`
	MinRetryBackoff Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"`
	RetryMultiplier float64  `yaml:"retry_multiplier"`

	RateLimitRPS float64  `yaml:"rate_limit_rps"`
	ToggleDelay  Duration `yaml:"toggle_delay"` // pause between toggle half-cycles
}

// SchedulerConfig contains job scheduler settings.
type SchedulerConfig struct {
	DailyJitter  Duration `yaml:"daily_jitter"`  // random delay added to each daily run
	MisfireGrace Duration `yaml:"misfire_grace"` // how late a missed daily run may still fire
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(5 * time.Second)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./vplan.sqlite"
	}

	// SmartThings defaults
	if cfg.SmartThings.BaseAPIURL == "" {
		cfg.SmartThings.BaseAPIURL = "https://api.smartthings.com"
	}
	if cfg.SmartThings.Timeout == 0 {
		cfg.SmartThings.Timeout = Duration(30 * time.Second)
	}
	if cfg.SmartThings.MaxAttempts == 0 {
		cfg.SmartThings.MaxAttempts = 3
	}
	if cfg.SmartThings.MinRetryBackoff == 0 {
		cfg.SmartThings.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.SmartThings.MaxRetryBackoff == 0 {
		cfg.SmartThings.MaxRetryBackoff = Duration(30 * time.Second)
	}
	if cfg.SmartThings.RetryMultiplier == 0 {
		cfg.SmartThings.RetryMultiplier = 2.0
	}
	if cfg.SmartThings.RateLimitRPS == 0 {
		cfg.SmartThings.RateLimitRPS = 5.0
	}
	if cfg.SmartThings.ToggleDelay == 0 {
		cfg.SmartThings.ToggleDelay = Duration(5 * time.Second)
	}

	// Scheduler defaults
	if cfg.Scheduler.DailyJitter == 0 {
		cfg.Scheduler.DailyJitter = Duration(5 * time.Minute)
	}
	if cfg.Scheduler.MisfireGrace == 0 {
		cfg.Scheduler.MisfireGrace = Duration(1 * time.Hour)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
