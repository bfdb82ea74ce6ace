package crypto

import (
	"crypto/aes"
	"fmt"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// Adapter exposes a SectorCipher through the Crypto interface used by the
// partition IO layer
type Adapter struct {
	cipher *SectorCipher
}

// Compile-time check
var _ interfaces.Crypto = (*Adapter)(nil)

// NewAdapter builds an adapter for a BIS key
func NewAdapter(key types.BisKey, sectorSize int64) (*Adapter, error) {
	if key.IsZero() {
		return nil, types.ErrMissingKey
	}
	c, err := NewSectorCipher(key.Crypto[:], key.Tweak[:], sectorSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sector cipher: %w", err)
	}
	return &Adapter{cipher: c}, nil
}

// BlockSize returns the AES block size
func (a *Adapter) BlockSize() int {
	return aes.BlockSize
}

func (a *Adapter) Encrypt(buf []byte, offset int64) error {
	return a.cipher.Encrypt(buf, offset)
}

func (a *Adapter) Decrypt(buf []byte, offset int64) error {
	return a.cipher.Decrypt(buf, offset)
}
