package tlv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	headerLen          = 8 // 4-byte type + 4-byte value length, both big-endian
	initialReserve     = 64
	readChunkSize      = 4096
	defaultMaxValueLen = 64 * 1024 * 1024
)

// Parser incrementally decodes a stream of length-prefixed TLV messages,
// following the same bounded-allocation, chunked-read shape as
// redis/resp.Parser.
type Parser struct {
	r           *bufio.Reader
	maxValueLen int64
}

// NewParser wraps r, defaulting the accepted value length to
// defaultMaxValueLen.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReaderSize(r, readChunkSize), maxValueLen: defaultMaxValueLen}
}

// SetMaxValueLen overrides the maximum accepted declared value length.
func (p *Parser) SetMaxValueLen(n int64) { p.maxValueLen = n }

// ReadMessage reads one TLV frame from the stream.
func (p *Parser) ReadMessage() (Message, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(p.r, header[:]); err != nil {
		return Message{}, err
	}
	typ := int32(binary.BigEndian.Uint32(header[:4]))
	length := int64(binary.BigEndian.Uint32(header[4:]))

	if p.maxValueLen > 0 && length > p.maxValueLen {
		return Message{}, fmt.Errorf("tlv: declared value length %d exceeds limit %d", length, p.maxValueLen)
	}

	value, err := p.readValueBytes(length)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Value: value}, nil
}

// readValueBytes reads n declared bytes without eagerly allocating n bytes
// upfront: it reserves a small constant and grows via append as chunks
// arrive from the reader, bounding allocation against a corrupt or
// adversarial declared length.
func (p *Parser) readValueBytes(n int64) ([]byte, error) {
	reserve := n
	if reserve > initialReserve {
		reserve = initialReserve
	}
	buf := make([]byte, 0, reserve)
	var chunk [readChunkSize]byte
	remaining := n
	for remaining > 0 {
		want := int64(len(chunk))
		if remaining < want {
			want = remaining
		}
		read, err := io.ReadFull(p.r, chunk[:want])
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk[:read]...)
		remaining -= int64(read)
	}
	return buf, nil
}
