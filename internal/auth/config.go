package auth

import (
	"os"
	"time"
)

type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	PendingTTL time.Duration
	// login attempts allowed per LoginWindow and client
	LoginLimit  int64
	LoginWindow time.Duration
}

func ConfigFromEnv() Config {
	cfg := Config{
		Secret:      os.Getenv("JWT_SECRET"),
		Issuer:      "portal",
		AccessTTL:   12 * time.Hour,
		PendingTTL:  5 * time.Minute,
		LoginLimit:  10,
		LoginWindow: time.Minute,
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("AUTH_ACCESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTTL = d
		}
	}
	if v := os.Getenv("AUTH_PENDING_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PendingTTL = d
		}
	}
	if v := os.Getenv("AUTH_LOGIN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LoginWindow = d
		}
	}
	return cfg
}
