package resp

import "bytes"

// ParseInline parses a line of whitespace-separated tokens (legacy RESP
// inline commands, spec.md §4.11) as an array of bulk strings. line must
// not include the trailing CRLF.
func ParseInline(line []byte) Value {
	fields := bytes.Fields(line)
	arr := make([]Value, 0, len(fields))
	for _, f := range fields {
		arr = append(arr, Value{Kind: KindBulkString, Str: append([]byte(nil), f...)})
	}
	return Value{Kind: KindArray, Array: arr}
}

// LooksLikeInline reports whether the first byte of line is NOT one of the
// RESP3 framing type bytes, i.e. a server should treat it as an inline
// command rather than a framed request.
func LooksLikeInline(line []byte) bool {
	if len(line) == 0 {
		return false
	}
	switch line[0] {
	case '+', '-', ':', '$', '*', '_', '#', ',', '(', '!', '=', '%', '~', '>', '|':
		return false
	default:
		return true
	}
}
