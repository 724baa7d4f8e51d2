package tlv

import "encoding/binary"

// Writer serializes Messages to the TLV wire format.
type Writer struct{}

// NewWriter returns a Writer. It carries no state; TLV framing needs no
// per-call configuration.
func NewWriter() *Writer { return &Writer{} }

// BuildMessage serializes msg into a single contiguous frame: a 4-byte
// big-endian type, a 4-byte big-endian value length, then the value.
func (w *Writer) BuildMessage(msg Message) []byte {
	buf := make([]byte, headerLen+len(msg.Value))
	binary.BigEndian.PutUint32(buf[:4], uint32(msg.Type))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(msg.Value)))
	copy(buf[headerLen:], msg.Value)
	return buf
}
