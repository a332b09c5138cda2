package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Lark     LarkConfig     `mapstructure:"lark"`
	SLA      SLAConfig      `mapstructure:"sla"`
	Display  DisplayConfig  `mapstructure:"display"`
	Export   ExportConfig   `mapstructure:"export"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the local bookkeeping database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GatewayConfig holds the remote loan service configuration
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RolesConfig holds role provider configuration. With an endpoint set, roles
// come from the identity service; otherwise the static list applies.
type RolesConfig struct {
	Static   []string      `mapstructure:"static"`
	Endpoint string        `mapstructure:"endpoint"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LarkConfig holds Lark messenger configuration for user notifications
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveID     string `mapstructure:"receive_id"`
	ReceiveIDType string `mapstructure:"receive_id_type"`
}

// SLAConfig holds stage-window configuration
type SLAConfig struct {
	TargetHours     map[string]int `mapstructure:"target_hours"`
	MonitorInterval time.Duration  `mapstructure:"monitor_interval"`
}

// DisplayConfig holds locale settings for formatted output
type DisplayConfig struct {
	Locale         string `mapstructure:"locale"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// ExportConfig holds report output configuration
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/loan-workflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("gateway.timeout", 30*time.Second)

	viper.SetDefault("roles.static", []string{"CUSTOMER"})
	viper.SetDefault("roles.cache_ttl", time.Minute)

	viper.SetDefault("lark.enabled", false)
	viper.SetDefault("lark.receive_id_type", "chat_id")

	viper.SetDefault("sla.monitor_interval", time.Minute)

	viper.SetDefault("display.locale", "id")
	viper.SetDefault("display.currency_symbol", "Rp")

	viper.SetDefault("export.output_dir", "reports")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("gateway.base_url", "LOAN_GATEWAY_URL")
	viper.BindEnv("gateway.token", "LOAN_GATEWAY_TOKEN")
	viper.BindEnv("roles.endpoint", "ROLES_ENDPOINT")
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.receive_id", "LARK_RECEIVE_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark is enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark is enabled")
		}
		if c.Lark.ReceiveID == "" {
			return fmt.Errorf("lark.receive_id is required when lark is enabled")
		}
	}

	for stage, hours := range c.SLA.TargetHours {
		if hours <= 0 {
			return fmt.Errorf("sla.target_hours.%s must be positive", stage)
		}
	}

	return nil
}

// StageTargets converts the configured per-stage hours into durations
func (c *Config) StageTargets() map[string]time.Duration {
	targets := make(map[string]time.Duration, len(c.SLA.TargetHours))
	for stage, hours := range c.SLA.TargetHours {
		targets[stage] = time.Duration(hours) * time.Hour
	}
	return targets
}
