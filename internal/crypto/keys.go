package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// ParseBisKey parses a BIS key given as 64 hex characters, crypto key first
// then tweak key. Whitespace and a "0x" prefix are ignored.
func ParseBisKey(s string) (types.BisKey, error) {
	raw, err := decodeHex(s)
	if err != nil {
		return types.BisKey{}, err
	}
	if len(raw) != 32 {
		return types.BisKey{}, fmt.Errorf("BIS key must be 32 bytes, got %d", len(raw))
	}
	var key types.BisKey
	copy(key.Crypto[:], raw[:16])
	copy(key.Tweak[:], raw[16:])
	return key, nil
}

// ParseBisKeyPair parses the crypto and tweak halves of a BIS key separately
func ParseBisKeyPair(cryptoHex, tweakHex string) (types.BisKey, error) {
	c, err := decodeHex(cryptoHex)
	if err != nil {
		return types.BisKey{}, fmt.Errorf("crypto key: %w", err)
	}
	t, err := decodeHex(tweakHex)
	if err != nil {
		return types.BisKey{}, fmt.Errorf("tweak key: %w", err)
	}
	if len(c) != 16 || len(t) != 16 {
		return types.BisKey{}, fmt.Errorf("crypto and tweak keys must be 16 bytes, got %d and %d", len(c), len(t))
	}
	var key types.BisKey
	copy(key.Crypto[:], c)
	copy(key.Tweak[:], t)
	return key, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	return raw, nil
}
