// Package middleware provides the gin middleware stack for the shelld API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for the shell UI
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - Logger: zap request logging
//   - Recovery: panic recovery with a JSON 500
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
