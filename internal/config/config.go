package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chrome   ChromeConfig
	Recorder RecorderConfig
	Executor ExecutorConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
	ExportDir    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Charset  string
}

type JWTConfig struct {
	Secret     string
	ExpireTime int
}

type ChromeConfig struct {
	HeadlessMode bool
	DebugPort    int
	BinaryPath   string
	CookiePath   string
}

type RecorderConfig struct {
	PollInterval  time.Duration
	MaxLogEntries int
	EvictTo       int
}

type ExecutorConfig struct {
	StepTimeout    time.Duration
	ElementTimeout time.Duration
	MaxClickTries  int
	QueueReloads   int
}

type SyncConfig struct {
	PatternInterval time.Duration
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, plain environment variables still apply.
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Mode:         getEnv("SERVER_MODE", "debug"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			ExportDir:    getEnv("EXPORT_DIR", "./exports"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnv("DB_PORT", "3306"),
			Username: getEnv("DB_USERNAME", "root"),
			Password: getEnv("DB_PASSWORD", "root"),
			Database: getEnv("DB_NAME", "ticketflow"),
			Charset:  getEnv("DB_CHARSET", "utf8mb4"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "ticketflow-secret-key"),
			ExpireTime: getEnvAsInt("JWT_EXPIRE_TIME", 24*3600),
		},
		Chrome: ChromeConfig{
			HeadlessMode: getEnvAsBool("CHROME_HEADLESS", false),
			DebugPort:    getEnvAsInt("CHROME_DEBUG_PORT", 9222),
			BinaryPath:   getEnv("CHROME_BINARY", ""),
			CookiePath:   getEnv("CHROME_COOKIE_PATH", ""),
		},
		Recorder: RecorderConfig{
			PollInterval:  getEnvAsDuration("RECORDER_POLL_INTERVAL", 100*time.Millisecond),
			MaxLogEntries: getEnvAsInt("RECORDER_MAX_ACTIONS", 1000),
			EvictTo:       getEnvAsInt("RECORDER_EVICT_TO", 500),
		},
		Executor: ExecutorConfig{
			StepTimeout:    getEnvAsDuration("EXECUTOR_STEP_TIMEOUT", 30*time.Second),
			ElementTimeout: getEnvAsDuration("EXECUTOR_ELEMENT_TIMEOUT", 10*time.Second),
			MaxClickTries:  getEnvAsInt("EXECUTOR_MAX_CLICK_TRIES", 3),
			QueueReloads:   getEnvAsInt("EXECUTOR_QUEUE_RELOADS", 3),
		},
		Sync: SyncConfig{
			PatternInterval: getEnvAsDuration("PATTERN_SYNC_INTERVAL", 30*time.Second),
		},
	}

	return config, nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.Charset,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
