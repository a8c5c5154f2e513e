package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendOpenCV = "opencv"
	BackendONNX   = "onnx"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	HTTPAddr     string
	WriteTimeout time.Duration

	UploadDir  string
	ResultsDir string

	DetectorBackend string
	ModelPath       string
	LabelsPath      string
	ONNXLibraryPath string
	VideoCodec      string

	JobStore     string
	DatabasePath string

	LogLevel string
	LogFile  string

	TelegramToken  string
	TelegramChatID int64
}

// Load читает конфигурацию из окружения, предварительно подгружая .env.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":5000"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		ResultsDir:      getEnv("RESULTS_DIR", "results"),
		DetectorBackend: getEnv("DETECTOR_BACKEND", defaultBackend),
		ModelPath:       getEnv("MODEL_PATH", "yolov8s.onnx"),
		LabelsPath:      os.Getenv("LABELS_PATH"),
		ONNXLibraryPath: os.Getenv("ONNX_LIBRARY_PATH"),
		VideoCodec:      getEnv("VIDEO_CODEC", "avc1"),
		JobStore:        getEnv("JOB_STORE", StoreMemory),
		DatabasePath:    getEnv("DATABASE_PATH", "detections.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", "app.log"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
	}

	timeout, err := time.ParseDuration(getEnv("WRITE_TIMEOUT", "10m"))
	if err != nil {
		return nil, fmt.Errorf("parse WRITE_TIMEOUT: %w", err)
	}
	cfg.WriteTimeout = timeout

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	switch cfg.DetectorBackend {
	case BackendOpenCV, BackendONNX:
	default:
		return nil, fmt.Errorf("unknown DETECTOR_BACKEND %q", cfg.DetectorBackend)
	}

	switch cfg.JobStore {
	case StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown JOB_STORE %q", cfg.JobStore)
	}

	return cfg, nil
}

// NotifierEnabled сообщает, заданы ли реквизиты Telegram.
func (c *Config) NotifierEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
