package mmlog

import (
	"io"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is type of log levels
type Level = zapcore.Level

var (
	// DebugLevel level
	DebugLevel = zap.DebugLevel
	// InfoLevel level
	InfoLevel = zap.InfoLevel
	// WarnLevel level
	WarnLevel = zap.WarnLevel
	// ErrorLevel level
	ErrorLevel = zap.ErrorLevel
	// PanicLevel level
	PanicLevel = zap.PanicLevel
	// FatalLevel level
	FatalLevel = zap.FatalLevel

	// Debugf logs formatted debug message
	Debugf logFormatFunc
	// Infof logs formatted info message
	Infof logFormatFunc
	// Warnf logs formatted warn message
	Warnf logFormatFunc
	// Errorf logs formatted error message
	Errorf logFormatFunc
	Panicf logFormatFunc
	Fatalf logFormatFunc
	Fatal  func(args ...interface{})
	Panic  func(args ...interface{})
)

type logFormatFunc func(format string, args ...interface{})

var (
	outputWriter io.Writer = os.Stderr
	source       string
	atomLevel    = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	logger *zap.Logger
	sugar  *zap.SugaredLogger
)

func init() {
	rebuildLogger()
}

func rebuildLogger() {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(outputWriter), atomLevel)
	logger = zap.New(core)
	if source != "" {
		logger = logger.With(zap.String("source", source))
	}
	setSugar(logger.Sugar())
}

func setSugar(sugar_ *zap.SugaredLogger) {
	sugar = sugar_
	Debugf = sugar.Debugf
	Infof = sugar.Infof
	Warnf = sugar.Warnf
	Errorf = sugar.Errorf
	Panicf = sugar.Panicf
	Panic = sugar.Panic
	Fatalf = sugar.Fatalf
	Fatal = sugar.Fatal
}

// SetSource sets the component name (portal/world) of mmlog module
func SetSource(comp string) {
	source = comp
	rebuildLogger()
}

// SetLevel sets the log level
func SetLevel(lv Level) {
	atomLevel.SetLevel(lv)
}

// GetLevel returns the current log level
func GetLevel() Level {
	return atomLevel.Level()
}

// SetOutput sets the output writer
func SetOutput(out io.Writer) {
	outputWriter = out
	rebuildLogger()
}

// GetOutput returns the output writer
func GetOutput() io.Writer {
	return outputWriter
}

// TraceError prints the stack and error
func TraceError(format string, args ...interface{}) {
	outputWriter.Write(debug.Stack())
	Errorf(format, args...)
}

// StringToLevel converts string to Level
func StringToLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	}
	Errorf("StringToLevel: unknown level: %s", s)
	return DebugLevel
}
