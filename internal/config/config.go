/**
 * @description
 * Configuration management for the billing service.
 */
package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	JWKSURL                string `mapstructure:"JWKS_URL"`
	InternalAPIKey         string `mapstructure:"INTERNAL_API_KEY"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	BusinessTimezone       string `mapstructure:"BUSINESS_TIMEZONE"`
	BlobDir                string `mapstructure:"BLOB_DIR"`
	HeadcountScope         string `mapstructure:"HEADCOUNT_SCOPE"`
	ProofRetentionDays     int    `mapstructure:"PROOF_RETENTION_DAYS"`
	OverdueSweepSchedule   string `mapstructure:"OVERDUE_SWEEP_SCHEDULE"`
	RetentionSweepSchedule string `mapstructure:"RETENTION_SWEEP_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BUSINESS_TIMEZONE", "UTC")
	viper.SetDefault("BLOB_DIR", "./data/blobs")
	viper.SetDefault("HEADCOUNT_SCOPE", "payee")
	viper.SetDefault("PROOF_RETENTION_DAYS", 7)
	viper.SetDefault("OVERDUE_SWEEP_SCHEDULE", "0 * * * *")
	viper.SetDefault("RETENTION_SWEEP_SCHEDULE", "30 2 * * *")
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("BLOB_DIR")
	_ = viper.BindEnv("HEADCOUNT_SCOPE")
	_ = viper.BindEnv("PROOF_RETENTION_DAYS")
	_ = viper.BindEnv("OVERDUE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("RETENTION_SWEEP_SCHEDULE")

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}

	if config.DatabaseURL == "" {
		err = errors.New("DATABASE_URL is required")
		return
	}
	if config.HeadcountScope != "payee" && config.HeadcountScope != "global" {
		err = errors.New("HEADCOUNT_SCOPE must be 'payee' or 'global'")
		return
	}
	return
}
