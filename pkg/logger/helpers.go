package logger

import (
	"github.com/rs/zerolog"
)

// LogMirrorAttempt logs the outcome of one mirror request
func LogMirrorAttempt(l Logger, accountID, mirror string, statusCode int, err error) {
	fields := map[string]interface{}{
		"account_id": accountID,
		"mirror":     mirror,
		"status":     statusCode,
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Mirror attempt failed", fields)
		return
	}
	l.DebugWithFields("Mirror attempt succeeded", fields)
}

// LogAssetDownload logs asset download operations
func LogAssetDownload(l Logger, accountID, kind, path string, err error) {
	fields := map[string]interface{}{
		"account_id": accountID,
		"kind":       kind,
	}

	if err != nil {
		l.WithError(err).ErrorWithFields("Asset download failed", fields)
		return
	}
	fields["path"] = path
	l.InfoWithFields("Asset downloaded", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
