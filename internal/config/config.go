// Package config loads runtime settings from HOMEBASE_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	JWTSecret string
	JWTTTL    time.Duration

	PostmarkToken string
	FromEmail     string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	DispatchInterval  time.Duration
	ReminderInterval  time.Duration
	SchedulerInterval time.Duration
}

// Load reads envFiles (missing files are ignored) and then the environment.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:            envOr("HOMEBASE_PORT", "8080"),
		DBPath:          envOr("HOMEBASE_DB_PATH", "homebase.db"),
		LogLevel:        envOr("HOMEBASE_LOG_LEVEL", "info"),
		LogFormat:       envOr("HOMEBASE_LOG_FORMAT", "text"),
		JWTSecret:       os.Getenv("HOMEBASE_JWT_SECRET"),
		PostmarkToken:   os.Getenv("HOMEBASE_POSTMARK_TOKEN"),
		FromEmail:       envOr("HOMEBASE_FROM_EMAIL", "noreply@homebase.local"),
		VAPIDPublicKey:  os.Getenv("HOMEBASE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("HOMEBASE_VAPID_PRIVATE_KEY"),
		VAPIDSubscriber: envOr("HOMEBASE_VAPID_SUBSCRIBER", "mailto:admin@homebase.local"),
	}

	var err error
	if cfg.JWTTTL, err = durationEnv("HOMEBASE_JWT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.DispatchInterval, err = durationEnv("HOMEBASE_DISPATCH_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ReminderInterval, err = durationEnv("HOMEBASE_REMINDER_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerInterval, err = durationEnv("HOMEBASE_SCHEDULER_INTERVAL", 24*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("HOMEBASE_JWT_SECRET is required")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationEnv accepts Go durations ("90s") or a bare number of seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
