package cluster

import "bytes"

// SlotCount is the fixed number of hash slots in Redis Cluster.
const SlotCount = 16384

// AutoSlot, when set as an Opt.Slot, means "derive the slot from the
// command", reserved for future support per spec.md §4.13. Both sentinels
// lie far below any command-argument index, so -1, -2, ... stay free for
// Opt.Slot's negative-index form.
const AutoSlot = -1 << 31

// AnyPrimary, when set as an Opt.Slot, picks a uniformly random slot.
const AnyPrimary = AutoSlot + 1

// KeySlot computes the slot for key: if key contains a non-empty {tag},
// the tag alone is hashed; otherwise the whole key is hashed. slot =
// CRC-16-XMODEM(bytes) mod 16384 (spec.md §4.13).
func KeySlot(key []byte) int {
	if tag := hashTag(key); len(tag) > 0 {
		return int(CRC16(tag)) % SlotCount
	}
	return int(CRC16(key)) % SlotCount
}

// hashTag extracts the substring between the first '{' and the next '}'
// in key, if any and non-empty.
func hashTag(key []byte) []byte {
	start := bytes.IndexByte(key, '{')
	if start < 0 {
		return nil
	}
	end := bytes.IndexByte(key[start+1:], '}')
	if end <= 0 {
		return nil
	}
	return key[start+1 : start+1+end]
}
