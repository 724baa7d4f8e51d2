// Package cluster implements the Redis Cluster client described in
// spec.md §4.13: a shared slot table refreshed via CLUSTER SLOTS,
// CRC-16/XMODEM key hashing, and MOVED/ASK redirect handling with replica
// round-robin reads.
package cluster
