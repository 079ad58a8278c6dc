package config

import (
	"fmt"
	"time"

	"PruneBot/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string

	// Database Settings
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
	DBVar      string

	// Discord Settings
	DiscordToken string
	DeveloperID  string

	// Inactivity Defaults
	DefaultWindowDays      int
	DefaultMinVoiceMinutes int

	// Hydration Settings
	HydrationPageInterval time.Duration
	MaxPageRetries        int

	// Report Settings
	ReportInterval    time.Duration
	ModLogChannelID   string
	SnapshotChannelID string
}

var AppConfig Config

func Load() error {
	logger.Log.Info("Loading configuration...")

	viper.AutomaticEnv()

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DEFAULT_WINDOW_DAYS", 90)
	viper.SetDefault("DEFAULT_MIN_VOICE_MINUTES", 0)
	viper.SetDefault("HYDRATION_PAGE_INTERVAL_MS", 1500)
	viper.SetDefault("MAX_PAGE_RETRIES", 3)
	viper.SetDefault("REPORT_INTERVAL_HOURS", 24)

	AppConfig.Environment = viper.GetString("ENVIRONMENT")

	AppConfig.DBUser = viper.GetString("DB_USER")
	AppConfig.DBPassword = viper.GetString("DB_PASSWORD")
	AppConfig.DBName = viper.GetString("DB_NAME")
	AppConfig.DBHost = viper.GetString("DB_HOST")
	AppConfig.DBPort = viper.GetString("DB_PORT")
	AppConfig.DBVar = viper.GetString("DB_VAR")

	AppConfig.DiscordToken = viper.GetString("DISCORD_TOKEN")
	AppConfig.DeveloperID = viper.GetString("DEVELOPER_ID")

	AppConfig.DefaultWindowDays = viper.GetInt("DEFAULT_WINDOW_DAYS")
	AppConfig.DefaultMinVoiceMinutes = viper.GetInt("DEFAULT_MIN_VOICE_MINUTES")

	AppConfig.HydrationPageInterval = time.Duration(viper.GetInt("HYDRATION_PAGE_INTERVAL_MS")) * time.Millisecond
	AppConfig.MaxPageRetries = viper.GetInt("MAX_PAGE_RETRIES")

	AppConfig.ReportInterval = time.Duration(viper.GetInt("REPORT_INTERVAL_HOURS")) * time.Hour
	AppConfig.ModLogChannelID = viper.GetString("MODLOG_CHANNEL_ID")
	AppConfig.SnapshotChannelID = viper.GetString("SNAPSHOT_CHANNEL_ID")

	if err := validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Log.Info("Configuration loaded successfully")
	return nil
}

func validate() error {
	required := map[string]string{
		"DISCORD_TOKEN": AppConfig.DiscordToken,
		"DB_USER":       AppConfig.DBUser,
		"DB_PASSWORD":   AppConfig.DBPassword,
		"DB_NAME":       AppConfig.DBName,
		"DB_HOST":       AppConfig.DBHost,
		"DB_PORT":       AppConfig.DBPort,
	}

	var missing []string
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	if AppConfig.DefaultWindowDays < 0 {
		return fmt.Errorf("DEFAULT_WINDOW_DAYS must not be negative")
	}
	if AppConfig.MaxPageRetries < 0 {
		return fmt.Errorf("MAX_PAGE_RETRIES must not be negative")
	}

	return nil
}

// Get returns the global configuration instance
func Get() *Config {
	return &AppConfig
}
