package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// config carries the service settings. Environment variables provide the
// defaults; an optional YAML file named by ALARMHUB_CONFIG overrides them.
type config struct {
	DatabaseURL     string
	HTTPAddr        string
	JWTSecret       string
	TokenTTL        time.Duration
	CronSecret      string
	CleanupSchedule string
	RetentionDays   int
	StalenessWindow time.Duration
}

// fileConfig mirrors config for the YAML file; durations are written in
// time.ParseDuration form ("720h", "60m").
type fileConfig struct {
	DatabaseURL     string `yaml:"database_url"`
	HTTPAddr        string `yaml:"http_addr"`
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTL        string `yaml:"token_ttl"`
	CronSecret      string `yaml:"cron_secret"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
	RetentionDays   int    `yaml:"retention_days"`
	StalenessWindow string `yaml:"staleness_window"`
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TokenTTL:        getenvDuration("AUTH_TOKEN_TTL", 30*24*time.Hour),
		CronSecret:      os.Getenv("CRON_SECRET"),
		CleanupSchedule: getenvDefault("CLEANUP_SCHEDULE", "0 3 * * *"),
		RetentionDays:   getenvIntDefault("RETENTION_DAYS", 30),
		StalenessWindow: getenvDuration("DUE_STALENESS_WINDOW", time.Hour),
	}

	if path := os.Getenv("ALARMHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config file error: %v", err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			log.Fatalf("config parse error: %v", err)
		}
		cfg.apply(file)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return cfg
}

func (c *config) apply(file fileConfig) {
	if file.DatabaseURL != "" {
		c.DatabaseURL = file.DatabaseURL
	}
	if file.HTTPAddr != "" {
		c.HTTPAddr = file.HTTPAddr
	}
	if file.JWTSecret != "" {
		c.JWTSecret = file.JWTSecret
	}
	if file.TokenTTL != "" {
		if parsed, err := time.ParseDuration(file.TokenTTL); err == nil {
			c.TokenTTL = parsed
		}
	}
	if file.CronSecret != "" {
		c.CronSecret = file.CronSecret
	}
	if file.CleanupSchedule != "" {
		c.CleanupSchedule = file.CleanupSchedule
	}
	if file.RetentionDays > 0 {
		c.RetentionDays = file.RetentionDays
	}
	if file.StalenessWindow != "" {
		if parsed, err := time.ParseDuration(file.StalenessWindow); err == nil {
			c.StalenessWindow = parsed
		}
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
