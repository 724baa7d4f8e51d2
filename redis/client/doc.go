// Package client implements the single-endpoint Redis client described in
// spec.md §4.12: connection parameters, a pipelined or sequential
// handshake state machine, request pipelining, watch timeouts, and
// connection retry.
package client
