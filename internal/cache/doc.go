// Package cache maps artifact URLs to files in the runner tool cache and
// serializes jobs that share one cache entry.
package cache
