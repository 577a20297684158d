// Package fetcher resolves, downloads and verifies the runtime archive.
//
// It reads the expected SHA-512 from a remote manifest, reuses the cached
// archive when it already matches, downloads it once otherwise, and refuses
// to report success unless the digests agree.
package fetcher
