package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the library configuration supplied by the embedding
// application's environment.
type Config struct {
	DBPath    string        // SQLite database path
	RedisAddr string        // Redis server address; empty disables the view cache
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // TTL for cached fund views
	LogLevel  string        // debug, info, warn, error
}

// Load reads configuration from environment variables, honoring a .env
// file when present.
func Load() *Config {
	_ = godotenv.Load() // Load .env file if present

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	ttl := 30 * time.Second
	if s := os.Getenv("CACHE_TTL_SECONDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/chitfund.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		DBPath:    dbPath,
		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   redisDB,
		CacheTTL:  ttl,
		LogLevel:  logLevel,
	}
}
