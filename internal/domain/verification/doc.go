// Package verification contains the record produced by one fetch run.
//
// A Record pairs the digest published in the manifest with the digest of the
// cached file and is the only thing allowed to declare the archive good.
package verification
