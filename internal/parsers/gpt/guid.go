package gpt

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/google/uuid"
)

// guidFromDisk converts a mixed-endian on-disk GUID to a uuid.UUID.
// The first three fields are stored little-endian.
func guidFromDisk(g [16]byte) uuid.UUID {
	return uuid.UUID{
		g[3], g[2], g[1], g[0],
		g[5], g[4],
		g[7], g[6],
		g[8], g[9], g[10], g[11], g[12], g[13], g[14], g[15],
	}
}

// guidToDisk is the inverse of guidFromDisk
func guidToDisk(u uuid.UUID) [16]byte {
	return [16]byte{
		u[3], u[2], u[1], u[0],
		u[5], u[4],
		u[7], u[6],
		u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15],
	}
}

// decodeUTF16LE decodes a UTF-16LE name, stopping at the first NUL.
func decodeUTF16LE(b []byte) string {
	u16s := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		val := binary.LittleEndian.Uint16(b[i : i+2])
		if val == 0 {
			break
		}
		u16s = append(u16s, val)
	}
	return string(utf16.Decode(u16s))
}
