// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Info, DebugKV, ErrorKV, etc.).
//
// Stdout is reserved for the command's own report, so diagnostics never mix
// with the lines the calling pipeline parses.
package logger
