package agent

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging for agent operations.
type Logger struct {
	zap *zap.Logger
}

// NewLogger creates a new Logger instance that writes to a file.
// If logPath is empty, logging is disabled.
// If development is true, debug-level events are included.
func NewLogger(logPath string, development bool) (*Logger, error) {
	if logPath == "" {
		// No logging
		return &Logger{zap: zap.NewNop()}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	level := zapcore.InfoLevel
	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logFile),
		level,
	)

	return &Logger{zap: zap.New(core)}, nil
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Zap exposes the underlying logger for packages that take *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Close syncs the logger (should be called on shutdown).
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// TurnStarted logs the beginning of a conversation turn.
func (l *Logger) TurnStarted(turn int, historyLen int) {
	l.zap.Info("turn started",
		zap.Int("turn", turn),
		zap.Int("history_messages", historyLen),
	)
}

// APICall logs one terminal API call outcome.
func (l *Logger) APICall(model string, inputTokens, outputTokens int, duration time.Duration) {
	l.zap.Info("api call",
		zap.String("model", model),
		zap.Int("input_tokens", inputTokens),
		zap.Int("output_tokens", outputTokens),
		zap.Duration("duration", duration),
	)
}

// ToolDispatched logs a tool call pulled off the work stack.
func (l *Logger) ToolDispatched(toolName, toolUseID string, pending int) {
	l.zap.Info("tool dispatched",
		zap.String("tool", toolName),
		zap.String("tool_use_id", toolUseID),
		zap.Int("pending_tasks", pending),
	)
}

// HistoryTrimmed logs a trim pass over the conversation history.
func (l *Logger) HistoryTrimmed(before, after int) {
	l.zap.Info("history trimmed",
		zap.Int("before", before),
		zap.Int("after", after),
	)
}

// Error logs an error.
func (l *Logger) Error(msg string, err error) {
	l.zap.Error(msg, zap.Error(err))
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}
