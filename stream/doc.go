// Package stream provides the little-endian byte cursor and writer shared by
// the container header and every block codec.
//
// Both types carry a sticky error. Once a read or write fails, every later
// call is a no-op that returns zero values, so nested codecs can run to
// completion without checking each field and the top-level caller inspects
// Err exactly once.
package stream
