package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type WorkerConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	UploadDir  string
	ResultsDir string
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	ProcessPerMin int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("worker.base_url", "http://localhost:3000")
	viper.SetDefault("worker.timeout_seconds", 10)
	viper.SetDefault("database.path", "database/processing_history.db")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.upload_dir", "uploads")
	viper.SetDefault("storage.results_dir", "results")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.process_per_min", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Worker: WorkerConfig{
			BaseURL: viper.GetString("worker.base_url"),
			Timeout: time.Duration(viper.GetInt("worker.timeout_seconds")) * time.Second,
		},
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			UploadDir:  viper.GetString("storage.upload_dir"),
			ResultsDir: viper.GetString("storage.results_dir"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			ProcessPerMin: viper.GetInt("ratelimit.process_per_min"),
		},
	}

	return cfg, nil
}
