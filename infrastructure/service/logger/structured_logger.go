package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface used across the service.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type sessionIDKey struct{}

// ContextWithSessionID stores the per-request session ID for log correlation.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}

type structuredLogger struct {
	logger *logrus.Logger
	fields map[string]interface{}
}

type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
	Output      io.Writer
}

func NewStructuredLogger(config LoggerConfig) Logger {
	logrusLogger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)

	if config.Format == "json" {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	logrusLogger.SetOutput(out)

	return &structuredLogger{
		logger: logrusLogger,
		fields: map[string]interface{}{
			"service": config.ServiceName,
		},
	}
}

// NewNopLogger discards everything. Used by tests and tools.
func NewNopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &structuredLogger{logger: l, fields: map[string]interface{}{}}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Debug(message)
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &structuredLogger{
		logger: l.logger,
		fields: newFields,
	}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	merged := logrus.Fields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		merged["session_id"] = sessionID
	}
	if err != nil {
		merged[logrus.ErrorKey] = err.Error()
	}

	if l.logger.IsLevelEnabled(logrus.DebugLevel) {
		if pc, file, line, ok := runtime.Caller(2); ok {
			merged["caller"] = fmt.Sprintf("%s:%d %s", file, line, runtime.FuncForPC(pc).Name())
		}
	}

	return l.logger.WithFields(merged)
}

// LogAuthEvent records an authentication outcome. Failures log at WARN.
func LogAuthEvent(ctx context.Context, logger Logger, event string, userID, ip string, success bool, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "auth"
	fields["auth_event"] = event
	fields["user_id"] = userID
	fields["ip"] = ip
	fields["success"] = success

	if !success {
		logger.Warn(ctx, fmt.Sprintf("Auth event failed: %s", event), fields)
		return
	}
	logger.Info(ctx, fmt.Sprintf("Auth event: %s", event), fields)
}

// LogSecurityEvent records a security-relevant event with a severity of
// HIGH, MEDIUM or LOW.
func LogSecurityEvent(ctx context.Context, logger Logger, event string, severity string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "security"
	fields["security_event"] = event
	fields["severity"] = severity

	message := fmt.Sprintf("Security event: %s", event)

	switch severity {
	case "HIGH":
		logger.Error(ctx, message, nil, fields)
	case "MEDIUM":
		logger.Warn(ctx, message, fields)
	default:
		logger.Info(ctx, message, fields)
	}
}

// LogPerformance records an operation's duration at DEBUG.
func LogPerformance(ctx context.Context, logger Logger, operation string, duration time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "performance"
	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()

	logger.Debug(ctx, fmt.Sprintf("%s took %s", operation, duration), fields)
}
