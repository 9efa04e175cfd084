package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/trackwash/internal/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the process logger. It embeds *zap.Logger and owns the log
// file when one is configured.
type ZapLogger struct {
	*zap.Logger
	file *os.File
}

// ZapConfig selects level and outputs. Stdout is used when Console is set or
// no file is configured.
type ZapConfig struct {
	Level       string
	ServiceName string
	Environment string
	FilePath    string
	Console     bool
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// NewZapLogger builds a JSON logger. nrApp, when set, also receives every
// entry as a New Relic log event.
func NewZapLogger(cfg ZapConfig, nrApp *newrelic.Application) (*ZapLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	enc := zapcore.NewJSONEncoder(encoderConfig())
	zl := &ZapLogger{}

	var cores []zapcore.Core
	if cfg.FilePath != "" {
		if zl.file, err = openLogFile(cfg.FilePath); err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(zl.file), level))
	}
	if cfg.Console || cfg.FilePath == "" {
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level))
	}
	if nrApp != nil {
		cores = append(cores, newNewRelicCore(nrApp, level, cfg.ServiceName))
	}

	var base []zap.Field
	if cfg.ServiceName != "" {
		base = append(base, zap.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		base = append(base, zap.String("env", cfg.Environment))
	}

	zl.Logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(base...)
	return zl, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// NewNopLogger discards everything
func NewNopLogger() *ZapLogger {
	return &ZapLogger{Logger: zap.NewNop()}
}

// Close flushes and releases the log file
func (zl *ZapLogger) Close() error {
	_ = zl.Logger.Sync()
	if zl.file == nil {
		return nil
	}
	return zl.file.Close()
}

// WithNewRelicContext adds trace.id and span.id from txn so log lines link
// to the distributed trace
func (zl *ZapLogger) WithNewRelicContext(txn *newrelic.Transaction) *zap.Logger {
	if txn == nil {
		return zl.Logger
	}
	md := txn.GetLinkingMetadata()
	if md.TraceID == "" {
		return zl.Logger
	}
	return zl.Logger.With(zap.String("trace.id", md.TraceID), zap.String("span.id", md.SpanID))
}

// InitZapLoggerFromConfig maps LOG_TYPE onto outputs: console, file or hybrid
func InitZapLoggerFromConfig(configs *models.Config, nrApp *newrelic.Application) (*ZapLogger, error) {
	cfg := ZapConfig{
		Level:       configs.Logger.Level,
		ServiceName: configs.App.Name,
		Environment: configs.App.Environment,
		Console:     configs.Logger.Type != "file",
	}
	if configs.Logger.Type == "file" || configs.Logger.Type == "hybrid" {
		cfg.FilePath = configs.Logger.FilePath
	}
	if !configs.NewRelic.ForwardLogs {
		nrApp = nil
	}
	return NewZapLogger(cfg, nrApp)
}
