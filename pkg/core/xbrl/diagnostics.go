package xbrl

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticSink receives facts skipped under PolicyLogging. Sinks shared
// between parsers must be safe for concurrent use.
type DiagnosticSink interface {
	ReportExtractionFailure(err *ValueExtractionError)
}

// NopSink discards every report.
type NopSink struct{}

func (NopSink) ReportExtractionFailure(*ValueExtractionError) {}

// ZapSink writes extraction failures to a zap logger at error level.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger. A nil logger yields a no-op sink.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("xbrl")}
}

// NewFileSink logs failures as JSON lines appended to path.
func NewFileSink(path string) (*ZapSink, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostic log %s: %w", path, err)
	}
	return NewZapSink(logger), nil
}

func (s *ZapSink) ReportExtractionFailure(err *ValueExtractionError) {
	s.logger.Error("fact skipped",
		zap.String("concept", err.Concept),
		zap.String("context_ref", err.ContextRef),
		zap.String("text", err.Text),
		zap.String("reason", err.Reason),
		zap.NamedError("cause", err.Err),
	)
}

// Sync flushes buffered log entries.
func (s *ZapSink) Sync() error {
	return s.logger.Sync()
}
