// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines on stderr
//   - Development: colored console output
//
// Standard fields used across shelld: app_id, window_id, token, pid, state.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	logger.ForApp("org.example.Editor").Info("Launch started", zap.String("token", tok))
package logging
