package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Referral ReferralConfig
	Cache    CacheConfig
	Internal InternalConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    int
	RateWindow   time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SeedSlabs       bool
}

// JWTConfig only verifies tokens; issuing them belongs to the auth service.
type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type ReferralConfig struct {
	RecentLimit     int // how many referrals a summary carries
	DefaultPageSize int
	MaxPageSize     int
}

type CacheConfig struct {
	SlabEntries int
}

// InternalConfig guards the collaborator-only endpoints (referral creation, investment events).
type InternalConfig struct {
	ServiceKey string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			RateLimit:    getEnvAsInt("RATE_LIMIT", 100),
			RateWindow:   getEnvAsDuration("RATE_WINDOW", 60*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_DSN", "root:@tcp(localhost:3306)/referrals?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			SeedSlabs:       getEnvAsBool("DB_SEED_SLABS", true),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       getEnv("JWT_ISSUER", "confiance"),
		},
		Referral: ReferralConfig{
			RecentLimit:     getEnvAsInt("REFERRAL_RECENT_LIMIT", 10),
			DefaultPageSize: getEnvAsInt("REFERRAL_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("REFERRAL_MAX_PAGE_SIZE", 100),
		},
		Cache: CacheConfig{
			SlabEntries: getEnvAsInt("SLAB_CACHE_ENTRIES", 64),
		},
		Internal: InternalConfig{
			ServiceKey: getEnv("INTERNAL_SERVICE_KEY", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
