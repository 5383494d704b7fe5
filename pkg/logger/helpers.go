package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNavigation logs a page navigation and how long it took to settle
func LogNavigation(l Logger, url string, settled float64, err error) {
	fields := map[string]interface{}{
		"url":        url,
		"settled_ms": settled,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Navigation failed", fields)
		return
	}
	l.DebugWithFields("Navigation settled", fields)
}

// LogCapture logs an accepted network capture
func LogCapture(l Logger, queryName string, seq int64, url string) {
	l.DebugWithFields("Captured response", map[string]interface{}{
		"query": queryName,
		"seq":   seq,
		"url":   url,
	})
}

// LogAsset logs the outcome of a single asset fetch
func LogAsset(l Logger, url, path string, bytes int64, err error) {
	fields := map[string]interface{}{
		"url": url,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Asset skipped", fields)
		return
	}
	fields["path"] = path
	fields["bytes"] = bytes
	l.InfoWithFields("Asset saved", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	zl := zerolog.Nop()
	return &zl
}
