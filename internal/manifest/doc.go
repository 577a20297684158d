// Package manifest reads and writes checksum manifests.
//
// A manifest is a small text file whose first line is
// "<hex-digest> <filename>". Only the first whitespace-separated token of
// the first line is significant when reading.
package manifest
