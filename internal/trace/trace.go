// Package trace is the structured logging sink replacing the teacher's
// scattered log.Printf calls (client.go, conn.go) with zap, matching how
// chenquan-lighthouse wires its own *zap.Logger throughout the broker.
// Level and destination are env/option driven per spec.md §6's trace
// toggle: MQTTCLIENT_TRACE=debug|info|warn|error|off, defaulting to info.
package trace

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where trace output goes and how verbose it is.
type Config struct {
	Level      string // debug|info|warn|error|off
	FilePath   string // empty: stderr only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger per Config. An empty FilePath logs to stderr
// only; a non-empty one tees to both stderr and a lumberjack-rotated file,
// the combination chenquan-lighthouse's deployment docs assume for its own
// zap logger.
func New(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)
	if level == offLevel {
		return zap.NewNop()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level),
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...))
}

const offLevel = zapcore.Level(100)

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "off":
		return offLevel
	case "", "info":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// FromEnv builds a Config from MQTTCLIENT_TRACE and MQTTCLIENT_TRACE_FILE,
// spec.md §6's environment-driven trace toggle.
func FromEnv() Config {
	return Config{
		Level:    os.Getenv("MQTTCLIENT_TRACE"),
		FilePath: os.Getenv("MQTTCLIENT_TRACE_FILE"),
	}
}
