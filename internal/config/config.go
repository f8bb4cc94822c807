package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Bank struct {
		// Path to a JSON question bank; empty uses the bank built into the binary.
		Path string `yaml:"path" env:"BANK_PATH"`
		TTL  string `yaml:"ttl" env:"BANK_TTL"`
	} `yaml:"bank"`
	Game struct {
		DefaultParticipants int    `yaml:"default_participants" env:"GAME_DEFAULT_PARTICIPANTS"`
		AnswerReveal        string `yaml:"answer_reveal" env:"GAME_ANSWER_REVEAL"`
		ScoreboardDismiss   string `yaml:"scoreboard_dismiss" env:"GAME_SCOREBOARD_DISMISS"`
		Seed                int64  `yaml:"seed" env:"GAME_SEED"`
	} `yaml:"game"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error: defaults and the environment still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
