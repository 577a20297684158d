// Package digest computes lowercase hex SHA-512 digests of files and streams.
//
// Files are read in fixed-size chunks, so archives are never buffered whole.
// Read failures are reported as *IOError carrying the path.
package digest
