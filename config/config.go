package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sweetbite/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds the application configuration
type Config struct {
	AppPort  string
	GinMode  string
	IsProd   bool
	DBDriver string // sqlite or mysql
	DBPath   string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	SessionSecret string
	SessionTTL    time.Duration
	SessionStore  string // memory or redis
	RedisAddr     string
	RedisPass     string
	RedisDB       int

	AMQPURL   string
	UploadDir string
	LogLevel  string
	LogFormat string
	LoginRate int // attempts per minute per client ip
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from the environment, after loading .env if present
func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour
	}
	loginRate, err := strconv.Atoi(getEnv("LOGIN_RATE_PER_MIN", "10"))
	if err != nil || loginRate <= 0 {
		loginRate = 10
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		GinMode:       os.Getenv("GIN_MODE"),
		IsProd:        os.Getenv("IS_PROD") == "true",
		DBDriver:      getEnv("DB_DRIVER", "sqlite"),
		DBPath:        getEnv("DB_PATH", "sweetbite.db"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBName:        getEnv("DB_NAME", "sweetbite"),
		SessionSecret: getEnv("SESSION_SECRET", "sweetbite_dev_session_secret"),
		SessionTTL:    ttl,
		SessionStore:  getEnv("SESSION_STORE", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:     os.Getenv("REDIS_PASS"),
		RedisDB:       redisDB,
		AMQPURL:       os.Getenv("AMQP_URL"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		LoginRate:     loginRate,
	}
}

// DSN is the MySQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// SQLiteDSN enables foreign keys so ON DELETE rules are enforced
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// OpenDB connects to the configured database
func OpenDB(cfg *Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.DBDriver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN()), gcfg)
	case "sqlite", "":
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(cfg.DBPath)), gcfg)
		if err != nil {
			return nil, err
		}
		// one writer at a time; readers wait on busy_timeout
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
}

// SetupLogger configures the standard logrus logger
func SetupLogger(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
