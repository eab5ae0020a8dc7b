package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	JWTSecret               string
	WebhookSigningSecret    string
	AdminToken              string
	AllowedOrigins          []string
	PresenceWindow          time.Duration
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load resolves configuration from the environment (optionally seeded by a
// .env file) and an optional config file. Env wins over file, file over defaults.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, assuming environment variables are set.")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POSTGRES_CONN_STR", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "socialmedia")
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("WEBHOOK_SIGNING_SECRET", "")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("PRESENCE_WINDOW", "2m")
}

func fromViper(v *viper.Viper) (*Config, error) {
	window, err := time.ParseDuration(v.GetString("PRESENCE_WINDOW"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_WINDOW: %w", err)
	}
	if window <= 0 {
		return nil, fmt.Errorf("PRESENCE_WINDOW must be positive")
	}

	cfg := &Config{
		Port:                    v.GetString("PORT"),
		Env:                     v.GetString("ENV"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		PostgresConnStr:         v.GetString("POSTGRES_CONN_STR"),
		MongoURI:                v.GetString("MONGO_URI"),
		MongoDatabase:           v.GetString("MONGO_DATABASE"),
		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		FirebaseProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		WebhookSigningSecret:    v.GetString("WEBHOOK_SIGNING_SECRET"),
		AdminToken:              v.GetString("ADMIN_TOKEN"),
		AllowedOrigins:          splitList(v.GetString("ALLOWED_ORIGINS")),
		PresenceWindow:          window,
	}
	return cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresConnStr == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	if c.FirebaseCredentialsPath == "" && c.JWTSecret == "" {
		return fmt.Errorf("either FIREBASE_CREDENTIALS_PATH or JWT_SECRET must be set")
	}
	if c.IsProduction() && c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required in production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
