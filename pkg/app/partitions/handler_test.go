package partitions

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-nxnand/internal/nandgen"
	"github.com/deploymenttheory/go-nxnand/internal/types"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

func testKeys() types.BisKeys {
	var keys types.BisKeys
	for i := range keys {
		for j := 0; j < 16; j++ {
			keys[i].Crypto[j] = byte(0x31*i + j)
			keys[i].Tweak[j] = byte(0x70 + 0x05*i + j)
		}
	}
	return keys
}

func testNand(t *testing.T) (*app.Context, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rawnand.bin")
	keys := testKeys()
	require.NoError(t, nandgen.Create(path, nandgen.Options{Layout: nandgen.CompactLayout(), Keys: keys}))

	ctx := app.NewContext()
	ctx.Keys = keys
	ctx.Out = &bytes.Buffer{}
	return ctx, path
}

func TestHandle(t *testing.T) {
	ctx, path := testNand(t)

	resp, err := Handle(ctx, &Request{NandPath: path, WithFree: true})
	require.NoError(t, err)
	assert.Equal(t, nandgen.CompactLayout().Size(), resp.Size)
	require.Len(t, resp.Partitions, 11)

	for _, p := range resp.Partitions {
		if p.Mountable {
			assert.NotNil(t, p.Free, p.Name)
		}
	}
}

func TestHandle_Errors(t *testing.T) {
	ctx := app.NewContext()

	_, err := Handle(ctx, &Request{})
	var ce *app.CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, app.ErrCodeInvalidInput, ce.Code)

	_, err = Handle(ctx, &Request{NandPath: filepath.Join(t.TempDir(), "missing.bin")})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, app.ErrCodeNandAccess, ce.Code)
}

func TestFormatOutput(t *testing.T) {
	ctx, path := testNand(t)
	resp, err := Handle(ctx, &Request{NandPath: path})
	require.NoError(t, err)

	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "NAME")
				assert.Contains(t, output, "PRODINFOF")
				assert.Contains(t, output, "FAT32")
				assert.Contains(t, output, "bis3")
				assert.Contains(t, output, "11 partitions")
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var decoded struct {
					Partitions []struct {
						Name   string `json:"name"`
						Format string `json:"format"`
						BisKey string `json:"bis_key"`
					} `json:"partitions"`
				}
				require.NoError(t, json.Unmarshal([]byte(output), &decoded))
				require.Len(t, decoded.Partitions, 11)
				assert.Equal(t, "USER", decoded.Partitions[10].Name)
				assert.Equal(t, "FAT32", decoded.Partitions[10].Format)
				assert.Equal(t, "bis3", decoded.Partitions[10].BisKey)
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var decoded map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
				assert.Len(t, decoded["partitions"], 11)
			},
		},
		{
			name:    "unknown format",
			format:  "xml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := FormatOutput(&buf, resp, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, buf.String())
		})
	}
}
