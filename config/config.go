package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AutomationConfig tunes the browser automation engine. All values have
// production defaults; tests and local runs override through env vars.
type AutomationConfig struct {
	Headless          bool
	LoginPollInterval time.Duration
	LoginPollBackoff  time.Duration
	// LoginWaitTimeout of zero waits indefinitely for manual login.
	LoginWaitTimeout time.Duration
	AutoSubmitDelay  time.Duration
	BulkDelayMin     time.Duration
	BulkDelayMax     time.Duration
}

type AppConfig struct {
	Port        string
	Database    DatabaseConfig
	Automation  AutomationConfig
	JWTSecret   string
	Environment string
}

func GetDatabaseConfig() DatabaseConfig {
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	password := getEnv("DB_PASSWORD", "")

	if password == "" {
		fmt.Println("⚠️  Warning: DB_PASSWORD environment variable is not set.")
		fmt.Println("   Set database credentials before starting:")
		fmt.Println("   DB_PASSWORD='your_password' go run ./main.go")
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: password,
		DBName:   getEnv("DB_NAME", "autoapply"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func GetAutomationConfig() AutomationConfig {
	return AutomationConfig{
		Headless:          getEnv("HEADLESS", "true") != "false",
		LoginPollInterval: getEnvDuration("LOGIN_POLL_INTERVAL", 3*time.Second),
		LoginPollBackoff:  getEnvDuration("LOGIN_POLL_BACKOFF", 5*time.Second),
		LoginWaitTimeout:  getEnvDuration("LOGIN_WAIT_TIMEOUT", 0),
		AutoSubmitDelay:   getEnvDuration("AUTO_SUBMIT_DELAY", 5*time.Second),
		BulkDelayMin:      getEnvDuration("BULK_DELAY_MIN", 2*time.Second),
		BulkDelayMax:      getEnvDuration("BULK_DELAY_MAX", 5*time.Second),
	}
}

func GetAppConfig() AppConfig {
	return AppConfig{
		Port:        getEnv("PORT", "8081"),
		Database:    GetDatabaseConfig(),
		Automation:  GetAutomationConfig(),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		fmt.Printf("⚠️  Warning: invalid duration for %s (%q), using default %s\n", key, value, defaultValue)
		return defaultValue
	}
	return d
}
