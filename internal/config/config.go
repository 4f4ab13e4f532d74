// Package config loads vidtalk configuration from the environment with an
// optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ListenAddr string

	// DataDir is the single canonical root for per-session working storage.
	// Each session owns DataDir/<session_id> with its media artifacts.
	DataDir string

	// SurrealDB connection (per-session vector index)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// CLIP embedding sidecar
	ClipHost      string
	ClipModel     string
	ClipDimension int

	// Whisper transcription (OpenAI-compatible API)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	WhisperModel  string

	// Gemini answer generation
	GoogleAPIKey string
	VisionModel  string
	TextModel    string

	// Ingestion pipeline
	FrameInterval time.Duration
	ChunkTokens   int
	ChunkOverlap  int

	// Retrieval
	TextTopK  int
	ImageTopK int

	// Session lifecycle
	SessionTimeout time.Duration
	ReapInterval   time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors the YAML config file layout. Every field is optional;
// environment variables win over file values.
type fileConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	DataDir        string `yaml:"data_dir"`
	SurrealDBURL   string `yaml:"surrealdb_url"`
	ClipHost       string `yaml:"clip_host"`
	ClipModel      string `yaml:"clip_model"`
	ClipDimension  int    `yaml:"clip_dimension"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	WhisperModel   string `yaml:"whisper_model"`
	VisionModel    string `yaml:"vision_model"`
	TextModel      string `yaml:"text_model"`
	FrameInterval  string `yaml:"frame_interval"`
	ChunkTokens    int    `yaml:"chunk_tokens"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	TextTopK       int    `yaml:"text_top_k"`
	ImageTopK      int    `yaml:"image_top_k"`
	SessionTimeout string `yaml:"session_timeout"`
	ReapInterval   string `yaml:"reap_interval"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

// Load reads configuration from the environment, layered over the optional
// config file named by VIDTALK_CONFIG (default ./vidtalk.yaml if present).
// Secrets (GOOGLE_API_KEY, OPENAI_API_KEY) come from the environment only.
func Load() Config {
	fc := loadFile(getEnv("VIDTALK_CONFIG", "vidtalk.yaml"))

	return Config{
		ListenAddr: getEnv("VIDTALK_LISTEN_ADDR", or(fc.ListenAddr, ":8000")),
		DataDir:    getEnv("VIDTALK_DATA_DIR", or(fc.DataDir, "sessions_data")),

		// The API itself listens on 8000, so the index default sits one port up.
		SurrealDBURL:       getEnv("SURREALDB_URL", or(fc.SurrealDBURL, "ws://localhost:8001/rpc")),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "vidtalk"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "sessions"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ClipHost:      getEnv("CLIP_HOST", or(fc.ClipHost, "http://localhost:8093")),
		ClipModel:     getEnv("CLIP_MODEL", or(fc.ClipModel, "clip-vit-base-patch32")),
		ClipDimension: getEnvInt("CLIP_DIMENSION", orInt(fc.ClipDimension, 512)),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", fc.OpenAIBaseURL),
		WhisperModel:  getEnv("VIDTALK_WHISPER_MODEL", or(fc.WhisperModel, "whisper-1")),

		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		VisionModel:  getEnv("VIDTALK_VISION_MODEL", or(fc.VisionModel, "gemini-1.5-flash")),
		TextModel:    getEnv("VIDTALK_TEXT_MODEL", or(fc.TextModel, "gemini-1.5-flash-8b")),

		FrameInterval: getEnvDuration("VIDTALK_FRAME_INTERVAL", orDuration(fc.FrameInterval, time.Second)),
		ChunkTokens:   getEnvInt("VIDTALK_CHUNK_TOKENS", orInt(fc.ChunkTokens, 70)),
		ChunkOverlap:  getEnvInt("VIDTALK_CHUNK_OVERLAP", orInt(fc.ChunkOverlap, 10)),

		TextTopK:  getEnvInt("VIDTALK_TEXT_TOP_K", orInt(fc.TextTopK, 3)),
		ImageTopK: getEnvInt("VIDTALK_IMAGE_TOP_K", orInt(fc.ImageTopK, 2)),

		SessionTimeout: getEnvDuration("VIDTALK_SESSION_TIMEOUT", orDuration(fc.SessionTimeout, 30*time.Minute)),
		ReapInterval:   getEnvDuration("VIDTALK_REAP_INTERVAL", orDuration(fc.ReapInterval, time.Minute)),

		LogFile:  getEnv("VIDTALK_LOG_FILE", or(fc.LogFile, "/tmp/vidtalk.log")),
		LogLevel: parseLogLevel(getEnv("VIDTALK_LOG_LEVEL", or(fc.LogLevel, "INFO"))),
	}
}

// Validate reports configuration problems that make the server unusable.
// A missing GOOGLE_API_KEY is not fatal at startup; queries report a
// configuration error instead (ingestion does not need it).
func (c Config) Validate() error {
	var problems []string
	if c.DataDir == "" {
		problems = append(problems, "data dir must not be empty")
	}
	if c.ClipDimension <= 0 {
		problems = append(problems, "clip dimension must be positive")
	}
	if c.ChunkTokens <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTokens {
		problems = append(problems, "chunk overlap must be non-negative and smaller than chunk size")
	}
	if c.SessionTimeout <= 0 || c.ReapInterval <= 0 {
		problems = append(problems, "session timeout and reap interval must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func loadFile(path string) fileConfig {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring unparsable config file", "path", path, "error", err)
		return fileConfig{}
	}
	return fc
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func or(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

func orInt(val, defaultVal int) int {
	if val != 0 {
		return val
	}
	return defaultVal
}

func orDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
