// Package logger provides the structured logging interface used across igarchive.
//
// It wraps zerolog. Console output is colored and goes to stderr so that
// progress lines printed by the CLI stay readable; setting a log file adds a
// JSON stream rotated by lumberjack.
//
//	l, err := logger.New(&cfg.Logging)
//	l.WithField("target", "@alice").Info("Archiving profile")
//	l.WithError(err).WarnWithFields("Asset skipped", map[string]interface{}{"url": u})
//
// Tests use NewTestLogger to assert on what was logged, or NewNopLogger to
// silence output.
package logger
