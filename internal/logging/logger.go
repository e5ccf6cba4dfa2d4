package logging

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/VoidMesh/terrain/internal/config"
)

var Logger *log.Logger

// LogLevel represents available log levels
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// InitLogger initializes the global logger with the level from LOG_LEVEL.
func InitLogger() {
	Logger = log.New(os.Stderr)
	setLogLevel(Logger, parseLevel(os.Getenv("LOG_LEVEL")))
	Logger.SetReportTimestamp(true)
}

// Setup replaces the global logger with one configured from cfg.
func Setup(cfg config.LoggingConfig) {
	logger := log.New(os.Stderr)

	level := parseLevel(cfg.Level)
	setLogLevel(logger, level)

	if strings.EqualFold(cfg.Format, "json") && cfg.Structured {
		logger.SetFormatter(log.JSONFormatter)
	} else if strings.EqualFold(cfg.Format, "logfmt") {
		logger.SetFormatter(log.LogfmtFormatter)
	}

	logger.SetReportTimestamp(true)
	if cfg.Format == "pretty" || !cfg.Structured {
		logger.SetReportCaller(true)
	}
	logger.SetPrefix("terrain")

	Logger = logger
	Logger.Debug("Logger initialized", "level", level, "format", cfg.Format)
}

func parseLevel(raw string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func setLogLevel(logger *log.Logger, level LogLevel) {
	switch level {
	case DebugLevel:
		logger.SetLevel(log.DebugLevel)
	case WarnLevel:
		logger.SetLevel(log.WarnLevel)
	case ErrorLevel:
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// GetLogger returns the global logger instance
func GetLogger() *log.Logger {
	if Logger == nil {
		InitLogger()
	}
	return Logger
}

// WithFields creates a logger with contextual fields
func WithFields(fields ...interface{}) *log.Logger {
	return GetLogger().With(fields...)
}

// WithComponent tags every line with the emitting component.
func WithComponent(name string) *log.Logger {
	return WithFields("component", name)
}

// WithChunkCoords creates a logger with chunk coordinate context
func WithChunkCoords(chunkX, chunkZ int) *log.Logger {
	return WithFields("chunk_x", chunkX, "chunk_z", chunkZ)
}

// WithDuration creates a logger with duration context (for performance logging)
func WithDuration(operation string, duration interface{}) *log.Logger {
	return WithFields("operation", operation, "duration", duration)
}
