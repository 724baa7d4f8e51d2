package cluster

import (
	"net"
	"strconv"
	"strings"

	"github.com/joeycumines/go-coro/redis/resp"
)

// parseMoved recognizes a "-MOVED <slot> <host>:<port>" error reply.
func parseMoved(v resp.Value) (host string, port int, ok bool) {
	return parseRedirect(v, "MOVED")
}

// parseAsk recognizes a "-ASK <slot> <host>:<port>" error reply.
func parseAsk(v resp.Value) (host string, port int, ok bool) {
	return parseRedirect(v, "ASK")
}

func parseRedirect(v resp.Value, kind string) (host string, port int, ok bool) {
	if !v.IsError() {
		return "", 0, false
	}
	fields := strings.Fields(string(v.Str))
	if len(fields) != 3 || fields[0] != kind {
		return "", 0, false
	}
	h, p, err := net.SplitHostPort(fields[2])
	if err != nil {
		return "", 0, false
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false
	}
	return h, port, true
}

// isRetryableReplicaError reports whether an error reply should trigger
// the next replica in the round-robin rather than be returned to the
// caller. MOVED/ASK are handled by the caller as redirects, not retries.
func isRetryableReplicaError(v resp.Value) bool {
	if !v.IsError() {
		return false
	}
	s := string(v.Str)
	return !strings.HasPrefix(s, "MOVED ") && !strings.HasPrefix(s, "ASK ")
}
