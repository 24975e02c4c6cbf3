package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the API server and the copy tool.
// - backed by a zap SugaredLogger writing console-encoded lines to stdout
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)
// - With() returns a child logger carrying structured fields

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu    sync.RWMutex
	atom  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	setOutput(zapcore.Lock(os.Stdout))
}

func setOutput(ws zapcore.WriteSyncer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, atom)

	mu.Lock()
	defer mu.Unlock()
	base = zap.New(core)
	sugar = base.Sugar()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		atom.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		atom.SetLevel(zapcore.WarnLevel)
	case "error":
		atom.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		atom.SetLevel(zapcore.FatalLevel)
	default:
		atom.SetLevel(zapcore.InfoLevel)
	}
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// L exposes the underlying zap logger for code that wants typed fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a child logger that adds the given key/value pairs to every entry.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return s().With(keysAndValues...)
}

func Debugf(format string, v ...interface{}) { s().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { s().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { s().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { s().Errorf(format, v...) }

func Fatalf(format string, v ...interface{}) {
	s().Fatalf(format, v...)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	s().Infoln(v...)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { s().Debug(v) }
func Info(v string)  { s().Info(v) }
func Warn(v string)  { s().Warn(v) }
func Error(v string) { s().Error(v) }

// Sync flushes buffered entries; call before exiting.
func Sync() {
	_ = L().Sync()
}

// LevelString returns the current level as text.
func LevelString() string {
	switch atom.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
