package eventlog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint payloadLen | payload | crc32c(payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func EncodeRecord(payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(payload)))
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, crc32.Checksum(payload, castagnoli))
}

// DecodeRecord returns a copy of the payload, or false if the record is
// truncated or fails its checksum.
func DecodeRecord(b []byte) ([]byte, bool) {
	plen, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, false
	}
	if uint64(len(b)-n) < 4 || plen != uint64(len(b)-n-4) {
		return nil, false
	}
	payload := b[n : len(b)-4]
	if crc32.Checksum(payload, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}
