// Package logging builds the zap.Logger every core package accepts,
// matching this codebase's use of go.uber.org/zap for structured,
// leveled logging rather than the standard library's log package.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger. debug selects development-mode
// (console-friendly, debug level) vs production-mode (JSON, info level)
// encoding, the same switch this codebase's CLI exposes via --debug.
//
// When perfLogDir is non-empty, a second core is tee'd in that writes
// every entry at info level or above as JSON lines to a file under
// perfLogDir named for the date the logger was built (YYYY-MM-DD.jsonl).
// Entries are not filtered by logger name, and the file does not roll
// over at midnight. Its absence never fails construction — a bad or
// unwritable directory only disables the extra sink.
func New(debug bool, perfLogDir string) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.Encoder(zapcore.NewJSONEncoder(encoderCfg))

	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(devCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)

	if perfLogDir != "" {
		if sink, err := newDailyPerformanceCore(perfLogDir); err == nil {
			core = zapcore.NewTee(core, sink)
		}
	}

	return zap.New(core, zap.AddCaller()), nil
}

// newDailyPerformanceCore opens (creating if needed) today's performance
// log file and wraps it as an info-level JSON core. Callers rebuild the
// logger across a day boundary if they want the file to roll; the core's
// correctness does not otherwise depend on this file (spec §6.6).
func newDailyPerformanceCore(dir string) (zapcore.Core, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating performance log dir: %w", err)
	}

	name := fmt.Sprintf("%s.jsonl", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening performance log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	return zapcore.NewCore(encoder, zapcore.AddSync(f), zap.InfoLevel), nil
}
