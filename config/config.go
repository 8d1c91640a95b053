// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret (required by the API server).
	JWTSecret string

	// AdminUsers may mint password hashes. Lowercased.
	AdminUsers []string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Matching
	MatchScanLimit  int
	NameFolds       string
	ClubDesignators []string

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration for the API server. JWT_SECRET is required.
func Load() *Config {
	cfg := load()
	cfg.validate(true)
	return cfg
}

// LoadTools reads configuration for the command line tools, which never
// issue or check tokens.
func LoadTools() *Config {
	cfg := load()
	cfg.validate(false)
	return cfg
}

func load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "riders")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "results")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("ADMIN_USERS", "admin")
	v.SetDefault("MATCH_SCAN_LIMIT", 0)
	v.SetDefault("NAME_FOLDS", "")
	v.SetDefault("CLUB_DESIGNATORS", "")

	return &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBUser:          v.GetString("DB_USER"),
		DBPass:          v.GetString("DB_PASS"),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSLMODE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AdminUsers:      splitTrimmed(v.GetString("ADMIN_USERS")),
		Debug:           v.GetBool("DEBUG"),
		Port:            v.GetString("PORT"),
		TLSDomains:      splitTrimmed(v.GetString("TLS_DOMAINS")),
		MatchScanLimit:  v.GetInt("MATCH_SCAN_LIMIT"),
		NameFolds:       v.GetString("NAME_FOLDS"),
		ClubDesignators: splitTrimmed(v.GetString("CLUB_DESIGNATORS")),
		MySQLDSN:        v.GetString("MYSQL_DSN"),
	}
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func (c *Config) validate(server bool) {
	if c.DatabaseURL == "" && c.DBPass == "" {
		log.Fatal("config: DATABASE_URL or DB_PASS must be set")
	}
	if server && c.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}
	if c.MatchScanLimit < 0 {
		log.Fatal("config: MATCH_SCAN_LIMIT must be >= 0")
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}
