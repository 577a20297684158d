// Package config resolves the fetcher settings.
//
// Values come from an optional YAML file and are overridden by the
// RUNNER_TOOL_CACHE, JBR_URL, JBR_CHECKSUM_URL and GITHUB_OUTPUT
// environment variables. Validate reports all missing values together.
package config
