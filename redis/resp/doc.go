// Package resp implements a streaming RESP2/RESP3 parser and a
// scatter-gather command writer (spec.md §4.11). The parser consumes
// input incrementally from an io.Reader, bounds allocation against
// attacker-declared container sizes, and uses an explicit stack rather
// than the host call stack so arbitrarily deep nesting cannot overflow
// it.
package resp
