package client

import (
	"crypto/tls"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Command is one request: a command name plus its arguments, each already
// serialized to bytes.
type Command struct {
	Args [][]byte
}

// Options holds every handshake-relevant and per-request parameter from
// spec.md §4.12.
type Options struct {
	Host      string
	Port      int
	TLSConfig *tls.Config // nil disables TLS

	ProtoVer int // 2 or 3
	DB       int

	Username, Password string
	ClientName         string
	LibName, LibVer    string
	NoEvict, NoTouch   bool
	Readonly           bool
	Tracking           bool

	// Exclusive marks this connection as a dedicated ("connection client")
	// rather than a pool-shared one; it is assigned a nonzero conn-id.
	Exclusive bool

	ResponseSizeCap int64

	SendTimeout         time.Duration
	RecvTimeout         time.Duration
	KeepAliveTimeout    time.Duration
	DefaultWatchTimeout time.Duration
	WatchExtraTimeout   time.Duration

	RetryMax int

	// PipeHandshake sends every handshake stage as one pipelined batch when
	// true; otherwise stages run sequentially, stopping at the first error.
	PipeHandshake bool

	// ExtraStages appends arbitrary commands to the end of the handshake,
	// realizing spec.md's final "USER" stage.
	ExtraStages []Command
}

// WatchTimeout computes the deadline for a blocking command (BLPOP etc.)
// per spec.md §4.12: block_ms=0 uses DefaultWatchTimeout; block_ms>0 uses
// block_ms + WatchExtraTimeout.
func (o Options) WatchTimeout(blockMs int64) time.Duration {
	if blockMs == 0 {
		return o.DefaultWatchTimeout
	}
	return time.Duration(blockMs)*time.Millisecond + o.WatchExtraTimeout
}

// ConnKey returns a URL-encoded serialization of every handshake-relevant
// parameter, suitable for use as a connection-sharing key (spec.md §4.12).
func (o Options) ConnKey() string {
	v := url.Values{}
	v.Set("host", o.Host)
	v.Set("port", strconv.Itoa(o.Port))
	v.Set("protover", strconv.Itoa(o.ProtoVer))
	v.Set("db", strconv.Itoa(o.DB))
	if o.Username != "" {
		v.Set("user", o.Username)
	}
	if o.Password != "" {
		v.Set("pass", o.Password)
	}
	if o.ClientName != "" {
		v.Set("name", o.ClientName)
	}
	if o.LibName != "" {
		v.Set("libname", o.LibName)
	}
	if o.LibVer != "" {
		v.Set("libver", o.LibVer)
	}
	v.Set("noevict", strconv.FormatBool(o.NoEvict))
	v.Set("notouch", strconv.FormatBool(o.NoTouch))
	v.Set("readonly", strconv.FormatBool(o.Readonly))
	v.Set("tracking", strconv.FormatBool(o.Tracking))
	v.Set("tls", strconv.FormatBool(o.TLSConfig != nil))
	return v.Encode()
}

// ConnInfoManager maps a connection-sharing key to a stable numeric
// info-id, process-wide (spec.md §4.12).
type ConnInfoManager struct {
	mu         sync.Mutex
	infoIDs    map[string]int64
	nextInfoID int64
}

var globalConnInfoManager = &ConnInfoManager{infoIDs: make(map[string]int64)}

// DefaultConnInfoManager returns the process-wide manager instance.
func DefaultConnInfoManager() *ConnInfoManager { return globalConnInfoManager }

// InfoID returns the stable info-id for key, allocating a new one on first
// use.
func (m *ConnInfoManager) InfoID(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.infoIDs[key]; ok {
		return id
	}
	m.nextInfoID++
	m.infoIDs[key] = m.nextInfoID
	return m.nextInfoID
}

var connIDCounter int64

// nextConnID allocates a nonzero conn-id for an exclusive connection
// client. Shared connections always use conn-id 0.
func nextConnID() int64 { return atomic.AddInt64(&connIDCounter, 1) }
