package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	DeviceAuth DeviceAuthConfig
	Assignment AssignmentConfig
	Retention  RetentionConfig
	Broadcast  BroadcastConfig
	MQTT       MQTTConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	GeneralRPS   float64
	GeneralBurst int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DeviceAuthConfig governs the controller auth-key scheme. The key is a
// deterministic digest of KeyPrefix plus the serial number; devices may
// present it on registration. RequireUpdateKey additionally enforces it on
// the update path, which is off by default so devices always get an answer.
type DeviceAuthConfig struct {
	KeyPrefix        string
	RequireUpdateKey bool
}

type AssignmentConfig struct {
	// AllowUnseenClaim permits claiming a serial number that has never
	// contacted the system, creating the controller record on the fly.
	AllowUnseenClaim bool
}

type RetentionConfig struct {
	YearsToKeep   int
	SweepInterval time.Duration
	OfflineAfter  time.Duration
}

type BroadcastConfig struct {
	BufferSize int
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()

	viper.SetDefault("DEVICE_AUTH_KEY_PREFIX", "lxcloud-controller-")
	viper.SetDefault("RETENTION_YEARS_TO_KEEP", 1)
	viper.SetDefault("RETENTION_SWEEP_INTERVAL", "24h")
	viper.SetDefault("RETENTION_OFFLINE_AFTER", "720h")
	viper.SetDefault("BROADCAST_BUFFER_SIZE", 64)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("MQTT_TOPIC", "lxcloud/screen-updates")

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
		DeviceAuth: DeviceAuthConfig{
			KeyPrefix:        viper.GetString("DEVICE_AUTH_KEY_PREFIX"),
			RequireUpdateKey: viper.GetBool("DEVICE_AUTH_REQUIRE_UPDATE_KEY"),
		},
		Assignment: AssignmentConfig{
			AllowUnseenClaim: viper.GetBool("ASSIGNMENT_ALLOW_UNSEEN_CLAIM"),
		},
		Retention: RetentionConfig{
			YearsToKeep:   viper.GetInt("RETENTION_YEARS_TO_KEEP"),
			SweepInterval: viper.GetDuration("RETENTION_SWEEP_INTERVAL"),
			OfflineAfter:  viper.GetDuration("RETENTION_OFFLINE_AFTER"),
		},
		Broadcast: BroadcastConfig{
			BufferSize: viper.GetInt("BROADCAST_BUFFER_SIZE"),
		},
		MQTT: MQTTConfig{
			Enabled:  viper.GetBool("MQTT_ENABLED"),
			Broker:   viper.GetString("MQTT_BROKER"),
			ClientID: viper.GetString("MQTT_CLIENT_ID"),
			Username: viper.GetString("MQTT_USERNAME"),
			Password: viper.GetString("MQTT_PASSWORD"),
			Topic:    viper.GetString("MQTT_TOPIC"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
