package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/samh164/ptappv3/models"
)

// Config holds everything read from the environment. It is loaded once at
// startup; nothing else in the app touches os.Getenv.
type Config struct {
	ListenAddr string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTSecret string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	ExerciseDBAPIKey  string
	ExerciseDBBaseURL string
	ExerciseDBTimeout time.Duration
	ExerciseCacheTTL  time.Duration

	MaxGenerationAttempts int
	RetryBackoffBase      time.Duration

	VocabPath string
}

// Load reads .env (if present) and the environment, and fails on any missing
// required secret so a misconfigured deployment dies at startup instead of on
// the first request.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional outside local dev

	cfg := &Config{
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),

		DBHost:     getenv("DB_HOST", "localhost"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getenv("DB_PORT", "5432"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4"),
		OpenAITimeout: getdur("OPENAI_TIMEOUT", 60*time.Second),

		ExerciseDBAPIKey:  os.Getenv("EXERCISEDB_API_KEY"),
		ExerciseDBBaseURL: getenv("EXERCISEDB_BASE_URL", "https://exercisedb.p.rapidapi.com"),
		ExerciseDBTimeout: getdur("EXERCISEDB_TIMEOUT", 10*time.Second),
		ExerciseCacheTTL:  getdur("EXERCISE_CACHE_TTL", time.Hour),

		MaxGenerationAttempts: getint("MAX_GENERATION_ATTEMPTS", 3),
		RetryBackoffBase:      getdur("RETRY_BACKOFF_BASE", 2*time.Second),

		VocabPath: getenv("VOCAB_PATH", "config/vocabulary.yaml"),
	}

	required := map[string]string{
		"DB_USER":            cfg.DBUser,
		"DB_NAME":            cfg.DBName,
		"JWT_SECRET":         cfg.JWTSecret,
		"OPENAI_API_KEY":     cfg.OpenAIAPIKey,
		"EXERCISEDB_API_KEY": cfg.ExerciseDBAPIKey,
	}
	for key, val := range required {
		if val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", key)
		}
	}
	if cfg.MaxGenerationAttempts < 1 {
		return nil, fmt.Errorf("MAX_GENERATION_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// InitDB opens the Postgres connection and migrates the schema.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for all models. Split out so tests can reuse it
// against an in-memory database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.JournalEntry{},
		&models.Exercise{},
		&models.Alert{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
