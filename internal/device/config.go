// File: internal/device/config.go
// Package device loads the settings used to open and decrypt NAND dumps.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-nxnand/internal/crypto"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// Config holds configuration for opening NAND dumps
type Config struct {
	// Cipher sector size of the NAND
	SectorSize int64 `mapstructure:"sector_size"`
	// Refuse commands that write to a dump, such as inject and GPT repair
	ReadOnly bool `mapstructure:"read_only"`
	// Bytes moved per step of a copy, split or merge
	BufferSize int `mapstructure:"buffer_size"`
	// Part size for flat "file.NN" splits
	FlatChunkSize int64 `mapstructure:"flat_chunk_size"`
	// Part size for archive "file_split/NN" splits
	ArchiveChunkSize int64 `mapstructure:"archive_chunk_size"`
	// BIS keys as 64 hex characters, crypto key then tweak key
	Keys KeyConfig `mapstructure:"keys"`
}

// KeyConfig holds the four BIS keys in hex
type KeyConfig struct {
	Bis0 string `mapstructure:"bis0"`
	Bis1 string `mapstructure:"bis1"`
	Bis2 string `mapstructure:"bis2"`
	Bis3 string `mapstructure:"bis3"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sector_size", crypto.DefaultSectorSize)
	v.SetDefault("read_only", false)
	v.SetDefault("buffer_size", 1<<20)
	v.SetDefault("flat_chunk_size", 0x80000000)
	v.SetDefault("archive_chunk_size", 0xFFFF0000)
	// keys need defaults so that NXNAND_KEYS_BISn is picked up by Unmarshal
	for i := 0; i < 4; i++ {
		v.SetDefault(fmt.Sprintf("keys.bis%d", i), "")
	}
}

// DefaultConfig returns the settings used when no config file is present
func DefaultConfig() *Config {
	return &Config{
		SectorSize:       crypto.DefaultSectorSize,
		BufferSize:       1 << 20,
		FlatChunkSize:    0x80000000,
		ArchiveChunkSize: 0xFFFF0000,
	}
}

// LoadConfig loads configuration using Viper. An empty configFile searches
// for nxnand.yaml in the usual places; a missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nxnand")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/nxnand")
		v.AddConfigPath("/etc/nxnand")
	}

	setDefaults(v)

	// Allow environment variables, NXNAND_KEYS_BIS0 for keys.bis0
	v.SetEnvPrefix("NXNAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks sizes for sane values
func (c *Config) Validate() error {
	if c.SectorSize <= 0 || c.SectorSize%16 != 0 {
		return fmt.Errorf("sector_size must be a positive multiple of 16, got %d", c.SectorSize)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.FlatChunkSize <= 0 || c.ArchiveChunkSize <= 0 {
		return fmt.Errorf("split chunk sizes must be positive")
	}
	return nil
}

// BisKeys parses the configured keys. Empty slots stay unset.
func (c *Config) BisKeys() (types.BisKeys, error) {
	var keys types.BisKeys
	for i, s := range []string{c.Keys.Bis0, c.Keys.Bis1, c.Keys.Bis2, c.Keys.Bis3} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		key, err := crypto.ParseBisKey(s)
		if err != nil {
			return keys, fmt.Errorf("keys.bis%d: %w", i, err)
		}
		keys[i] = key
	}
	return keys, nil
}

// SetKey stores a hex key for one slot, overriding the configured value
func (c *Config) SetKey(id types.BisKeyID, hexKey string) error {
	switch id {
	case types.BisKey0:
		c.Keys.Bis0 = hexKey
	case types.BisKey1:
		c.Keys.Bis1 = hexKey
	case types.BisKey2:
		c.Keys.Bis2 = hexKey
	case types.BisKey3:
		c.Keys.Bis3 = hexKey
	default:
		return fmt.Errorf("invalid BIS key slot %d", int(id))
	}
	return nil
}

// LoadKeysFile reads BIS keys from a "name = hex" key file given by the user.
// Only bis_key_00 to bis_key_03 are used; every other entry is ignored.
func LoadKeysFile(path string) (types.BisKeys, error) {
	var keys types.BisKeys

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return keys, fmt.Errorf("error reading key file: %w", err)
	}

	for i := range keys {
		name := fmt.Sprintf("bis_key_%02d", i)
		s := v.GetString(name)
		if s == "" {
			continue
		}
		key, err := crypto.ParseBisKey(s)
		if err != nil {
			return keys, fmt.Errorf("%s: %w", name, err)
		}
		keys[i] = key
	}
	return keys, nil
}

// Merge fills slots of k that are unset from other
func Merge(k, other types.BisKeys) types.BisKeys {
	for i := range k {
		if k[i].IsZero() {
			k[i] = other[i]
		}
	}
	return k
}
