// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Site profiles can carry cookies, Authorization headers, and other
// credentials for crawling sites behind a login. The SecureHandler
// guarantees those values never reach the log output, even in verbose
// mode where every request is logged:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - Session identifiers and authentication tokens
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // Will be masked
//	    "url", "https://example.com/",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
