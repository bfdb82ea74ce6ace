// File: internal/crypto/xtsn.go
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// DefaultSectorSize is the cipher sector size used on NAND partitions
const DefaultSectorSize = 0x4000

// SectorCipher implements the NAND flavour of AES-XTS. The tweak for a sector
// is the AES encryption of the sector index stored big-endian in the last 8
// bytes of the block, which is the only difference from IEEE 1619 XTS.
//
// The cipher holds no state between calls.
type SectorCipher struct {
	data       cipher.Block
	tweak      cipher.Block
	sectorSize int64
}

// NewSectorCipher creates a cipher from a 16 byte crypto key and 16 byte tweak key
func NewSectorCipher(cryptoKey, tweakKey []byte, sectorSize int64) (*SectorCipher, error) {
	if len(cryptoKey) != 16 || len(tweakKey) != 16 {
		return nil, fmt.Errorf("crypto and tweak keys must be 16 bytes, got %d and %d", len(cryptoKey), len(tweakKey))
	}
	if sectorSize <= 0 || sectorSize%aes.BlockSize != 0 {
		return nil, fmt.Errorf("sector size %d is not a positive multiple of %d", sectorSize, aes.BlockSize)
	}

	dataCipher, err := aes.NewCipher(cryptoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create data AES cipher: %w", err)
	}
	tweakCipher, err := aes.NewCipher(tweakKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create tweak AES cipher: %w", err)
	}

	return &SectorCipher{data: dataCipher, tweak: tweakCipher, sectorSize: sectorSize}, nil
}

// SectorSize returns the sector size in bytes
func (c *SectorCipher) SectorSize() int64 {
	return c.sectorSize
}

// Encrypt encrypts data in place as if it were stored at byteOffset
func (c *SectorCipher) Encrypt(data []byte, byteOffset int64) error {
	return c.Run(data, byteOffset, true)
}

// Decrypt decrypts data in place as if it were read from byteOffset
func (c *SectorCipher) Decrypt(data []byte, byteOffset int64) error {
	return c.Run(data, byteOffset, false)
}

// Run encrypts or decrypts data in place. The length of data must be a
// multiple of 16. byteOffset may fall inside a sector, in which case the
// first sector's tweak is advanced past the skipped blocks.
func (c *SectorCipher) Run(data []byte, byteOffset int64, encrypt bool) error {
	if len(data)%aes.BlockSize != 0 {
		return fmt.Errorf("data length %d is not a multiple of %d", len(data), aes.BlockSize)
	}
	if byteOffset < 0 {
		return fmt.Errorf("negative byte offset %d", byteOffset)
	}

	sector := uint64(byteOffset / c.sectorSize)
	skipped := byteOffset % c.sectorSize
	blocksPerSector := int(c.sectorSize / aes.BlockSize)

	var t [aes.BlockSize]byte
	pos := 0

	if skipped > 0 {
		c.sectorTweak(sector, &t)
		for i := int64(0); i < skipped/aes.BlockSize; i++ {
			advanceTweak(&t)
		}
		pos = c.cryptBlocks(data, pos, int((c.sectorSize-skipped)/aes.BlockSize), &t, encrypt)
		sector++
	}

	for pos < len(data) {
		c.sectorTweak(sector, &t)
		pos = c.cryptBlocks(data, pos, blocksPerSector, &t, encrypt)
		sector++
	}
	return nil
}

// sectorTweak computes the initial tweak for a sector
func (c *SectorCipher) sectorTweak(sector uint64, t *[aes.BlockSize]byte) {
	*t = [aes.BlockSize]byte{}
	binary.BigEndian.PutUint64(t[8:], sector)
	c.tweak.Encrypt(t[:], t[:])
}

// cryptBlocks processes up to count blocks starting at pos and returns the new position
func (c *SectorCipher) cryptBlocks(data []byte, pos, count int, t *[aes.BlockSize]byte, encrypt bool) int {
	for i := 0; i < count && pos < len(data); i++ {
		c.cryptBlock(data[pos:pos+aes.BlockSize], t, encrypt)
		advanceTweak(t)
		pos += aes.BlockSize
	}
	return pos
}

// cryptBlock applies XEX to a single block in place
func (c *SectorCipher) cryptBlock(block []byte, t *[aes.BlockSize]byte, encrypt bool) {
	for j := range block {
		block[j] ^= t[j]
	}
	if encrypt {
		c.data.Encrypt(block, block)
	} else {
		c.data.Decrypt(block, block)
	}
	for j := range block {
		block[j] ^= t[j]
	}
}

// advanceTweak multiplies the tweak by x in GF(2^128), byte 0 least significant
func advanceTweak(t *[aes.BlockSize]byte) {
	carry := t[aes.BlockSize-1] >> 7
	for i := aes.BlockSize - 1; i > 0; i-- {
		t[i] = t[i]<<1 | t[i-1]>>7
	}
	t[0] <<= 1
	if carry != 0 {
		t[0] ^= 0x87
	}
}
