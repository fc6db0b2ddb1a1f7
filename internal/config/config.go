package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type AuthConfig struct {
	// HashIterations is the PBKDF2 work factor for newly written credentials.
	HashIterations int `mapstructure:"hash_iterations"`
	// LegacySuffixMatch enables the legacy-compatibility rule that accepts a
	// password matching a suffix of a stored plaintext credential. Off by
	// default; see DESIGN.md before enabling.
	LegacySuffixMatch bool `mapstructure:"legacy_suffix_match"`
}

// SchedulerConfig fixes the bookable day window and slot size.
type SchedulerConfig struct {
	DayStart     string `mapstructure:"day_start"`
	DayEnd       string `mapstructure:"day_end"`
	SlotMinutes  int    `mapstructure:"slot_minutes"`
	DurationMins int    `mapstructure:"default_duration_mins"`
}

// SMTPConfig comes from the environment rather than the config file, so
// mail credentials stay out of checked-in configuration.
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"localhost"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" default:"no-reply@clinica-valencia.example"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("auth.hash_iterations", 600000)
	viper.SetDefault("scheduler.day_start", "08:00")
	viper.SetDefault("scheduler.day_end", "17:00")
	viper.SetDefault("scheduler.slot_minutes", 30)
	viper.SetDefault("scheduler.default_duration_mins", 30)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func LoadSMTPConfig() (*SMTPConfig, error) {
	var cfg SMTPConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process SMTP environment: %w", err)
	}
	return &cfg, nil
}
