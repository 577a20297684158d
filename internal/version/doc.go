// Package version exposes build metadata for jbr-fetch.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. UserAgent renders the value sent with HTTP requests.
package version
