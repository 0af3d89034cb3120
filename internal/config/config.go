// Package config loads client configuration from the environment, with
// optional .env file support for development.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the videophone client configuration.
type Config struct {
	// Relay (ENS) endpoints.
	RelayURL     string `env:"RELAY_URL" envDefault:"https://ens.example.com/api"`
	RelayPushURL string `env:"RELAY_PUSH_URL" envDefault:"wss://ens.example.com/push"`
	RelayLogURL  string `env:"RELAY_LOG_URL"`
	RelayDev     bool   `env:"RELAY_DEV" envDefault:"false"`

	// Device identity.
	DeviceToken string `env:"DEVICE_TOKEN"`
	DeviceType  string `env:"DEVICE_TYPE" envDefault:"videophone"`

	// Call policy.
	MaxOutboundCalls    int      `env:"MAX_OUTBOUND_CALLS" envDefault:"2"`
	MaxInboundCalls     int      `env:"MAX_INBOUND_CALLS" envDefault:"1"`
	RingsBeforeGreeting int      `env:"RINGS_BEFORE_GREETING" envDefault:"4"`
	EmergencyNumbers    []string `env:"EMERGENCY_NUMBERS" envSeparator:"," envDefault:"911,988"`

	// Ops API.
	APIAddr string `env:"API_ADDR" envDefault:"127.0.0.1:8080"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	if envfile := os.Getenv("ENV_FILE"); envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envfile, err)
		}
	} else {
		// Default .env is optional.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
