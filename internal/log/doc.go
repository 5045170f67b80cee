// Package log builds the slog loggers used by boardwatch and masks
// credentials before they reach the output.
//
// Board fetches carry session cookies, custom authorization headers and
// sometimes proxy credentials. SecureHandler wraps any slog.Handler and
// replaces such values with MaskValue:
//   - attributes whose key names a credential (cookie, authorization,
//     password, psk, token, ...)
//   - string values shaped like a credential (bearer and basic
//     authorization values, private key blocks)
//   - URLs carrying a password in their userinfo, which keep everything
//     but the password
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("request", "url", "socks5://user:pw@127.0.0.1:9050") // pw is masked
//	slog.SetDefault(logger)
package log
