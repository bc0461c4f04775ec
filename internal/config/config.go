package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Server:
// - LISTEN_ADDR: HTTP listen address (default: :3000)
// - SCHEME: public URL scheme for download/status links (default: http)
// - DOMAIN: public host for download/status links (default: localhost:3000)
//
// Storage:
// - VIDEO_DIR: artifact directory (default: videos)
// - STORE_BACKEND: job store backend, "file" or "sqlite" (default: file)
// - JOBS_FILE: JSON snapshot path for the file backend (default: jobs.json)
// - DB_PATH: database path for the sqlite backend (default: jobs.db)
//
// Jobs:
// - WORKERS: worker pool size (default: 4)
// - RETENTION_HOURS: artifact retention window (default: 24)
// - SWEEP_CRON: schedule for the periodic expiry sweep (default: @hourly)
//
// Tools:
// - YTDLP_PATH: yt-dlp binary (default: yt-dlp)
// - FFMPEG_PATH: ffmpeg binary (default: ffmpeg)
// - FFPROBE_PATH: ffprobe binary (default: ffprobe)
// - LOG_LEVEL: debug, info, warn, error or fatal (default: info)

const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

type Config struct {
	Server ServerConfig `json:"server"`
	Store  StoreConfig  `json:"store"`
	Jobs   JobsConfig   `json:"jobs"`
	Tools  ToolsConfig  `json:"tools"`
}

type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`
	Scheme     string `json:"scheme"`
	Domain     string `json:"domain"`
}

// BaseURL is the public prefix for download and status links.
func (c ServerConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s", c.Scheme, c.Domain)
}

type StoreConfig struct {
	VideoDir string `json:"video_dir"`
	Backend  string `json:"backend"`
	JobsFile string `json:"jobs_file"`
	DBPath   string `json:"db_path"`
}

type JobsConfig struct {
	Workers        int    `json:"workers"`
	RetentionHours int    `json:"retention_hours"`
	SweepCron      string `json:"sweep_cron"`
}

type ToolsConfig struct {
	YtdlpPath   string `json:"ytdlp_path"`
	FfmpegPath  string `json:"ffmpeg_path"`
	FfprobePath string `json:"ffprobe_path"`
	LogLevel    string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			ListenAddr: getEnvString("LISTEN_ADDR", ":3000"),
			Scheme:     getEnvString("SCHEME", "http"),
			Domain:     getEnvString("DOMAIN", "localhost:3000"),
		},
		Store: StoreConfig{
			VideoDir: getEnvString("VIDEO_DIR", "videos"),
			Backend:  getEnvString("STORE_BACKEND", StoreBackendFile),
			JobsFile: getEnvString("JOBS_FILE", "jobs.json"),
			DBPath:   getEnvString("DB_PATH", "jobs.db"),
		},
		Jobs: JobsConfig{
			Workers:        getEnvInt("WORKERS", 4),
			RetentionHours: getEnvInt("RETENTION_HOURS", 24),
			SweepCron:      getEnvString("SWEEP_CRON", "@hourly"),
		},
		Tools: ToolsConfig{
			YtdlpPath:   getEnvString("YTDLP_PATH", "yt-dlp"),
			FfmpegPath:  getEnvString("FFMPEG_PATH", "ffmpeg"),
			FfprobePath: getEnvString("FFPROBE_PATH", "ffprobe"),
			LogLevel:    getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Server.Domain == "" {
		return fmt.Errorf("DOMAIN is required")
	}
	if c.Store.Backend != StoreBackendFile && c.Store.Backend != StoreBackendSQLite {
		return fmt.Errorf("STORE_BACKEND must be %q or %q", StoreBackendFile, StoreBackendSQLite)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("WORKERS must be greater than zero")
	}
	if c.Jobs.RetentionHours <= 0 {
		return fmt.Errorf("RETENTION_HOURS must be greater than zero")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
