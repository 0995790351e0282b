// Package logger provides the structured logging interface used across followsync.
//
// It wraps zerolog with a small API:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "mirror")
//	log.InfoWithFields("Profile fetched", map[string]interface{}{
//	    "account_id": id,
//	    "mirror":     base,
//	})
//
// Console output is written to stderr. When LoggingConfig.File is set, JSON
// lines are appended to that file as well.
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
