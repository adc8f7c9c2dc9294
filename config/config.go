package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/buidl-renaissance/appblocks/internal/logging"
)

type ServerConfig struct {
	Server struct {
		Host      string `mapstructure:"host" json:"host,omitempty"`
		Port      int64  `mapstructure:"port" json:"port,omitempty"`
		JWTSecret string `mapstructure:"jwt_secret" json:"jwt_secret,omitempty"`
		// GatewaySecret authenticates the upstream gateway that exchanges
		// already-authenticated user identities for session tokens.
		GatewaySecret string `mapstructure:"gateway_secret" json:"gateway_secret,omitempty"`
	} `mapstructure:"server" json:"server"`
	Database DatabaseConfig    `mapstructure:"database" json:"database,omitempty"`
	Redis    RedisConfig       `mapstructure:"redis" json:"redis,omitempty"`
	Datadog  DatadogConfig     `mapstructure:"datadog" json:"datadog"`
	Log      logging.LogFormat `mapstructure:"log_format" json:"log_format,omitempty"`
}

type WorkerConfig struct {
	Database    DatabaseConfig `mapstructure:"database" json:"database,omitempty"`
	Redis       RedisConfig    `mapstructure:"redis" json:"redis,omitempty"`
	Datadog     DatadogConfig  `mapstructure:"datadog" json:"datadog"`
	MetricsPort int            `mapstructure:"metrics_port" json:"metrics_port,omitempty" envconfig:"METRICS_PORT"`
	HealthPort  int            `mapstructure:"health_port" json:"health_port,omitempty" envconfig:"HEALTH_PORT"`
	Concurrency int            `mapstructure:"concurrency" json:"concurrency,omitempty" envconfig:"CONCURRENCY"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" json:"dsn,omitempty"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host" json:"host,omitempty"`
	Port     string `mapstructure:"port" json:"port,omitempty"`
	User     string `mapstructure:"user" json:"user,omitempty"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	DB       int    `mapstructure:"db" json:"db,omitempty"`
}

type DatadogConfig struct {
	Host string `mapstructure:"host" json:"host,omitempty"`
	Port string `mapstructure:"port" json:"port,omitempty"`
}

func ReadServerConfig() (*ServerConfig, error) {
	configName := os.Getenv("APPBLOCKS_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg ServerConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &cfg, nil
}

// ReadWorkerConfig reads the worker config file and applies APPBLOCKS_*
// environment overrides on top.
func ReadWorkerConfig() (*WorkerConfig, error) {
	configName := os.Getenv("APPBLOCKS_WORKER_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("concurrency", 10)
	viper.SetDefault("metrics_port", 9090)
	viper.SetDefault("health_port", 8081)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg WorkerConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := envconfig.Process("appblocks", &cfg); err != nil {
		return nil, fmt.Errorf("unable to process env overrides, %w", err)
	}
	return &cfg, nil
}
