// Package fetch downloads manifests and archives over HTTP.
//
// Transport failures and non-200 responses are reported as *NetworkError.
// Nothing is retried here; callers decide whether a second attempt is worth it.
package fetch
