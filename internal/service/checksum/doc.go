// Package checksum publishes SHA-512 manifests next to archives so they can
// be served to the fetcher from a mirror.
package checksum
