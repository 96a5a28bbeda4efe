// Package logger provides the process-wide zap sugared logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

// Init builds the global logger. Production environments get JSON output,
// everything else the development encoder. Unknown levels fall back to info.
func Init(environment, levelStr string) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	logger = zl.Sugar()
	mu.Unlock()
	return nil
}

// GetLogger returns the global logger, or a no-op logger if Init was never
// called (tests).
func GetLogger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return
	}
	if err := l.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
		fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
	}
}

// MaskEmail keeps the domain and the first characters of the local part.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + "@" + domain
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + "@" + domain
}
