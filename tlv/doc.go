// Package tlv implements the trivial tag-length-value example protocol
// from spec.md §4.15: a 4-byte big-endian type, a 4-byte big-endian value
// length, and that many value bytes, following the same
// incremental-append parser shape as redis/resp but with a minimal wire
// format.
package tlv
