package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-nxnand/internal/types"
)

func TestErrCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewError(ErrCodeInvalidInput, "bad", nil), ErrCodeInvalidInput},
		{fmt.Errorf("wrapped: %w", types.ErrPartitionNotFound), ErrCodePartitionNotFound},
		{types.ErrMissingKey, ErrCodeKeys},
		{types.ErrKeyMismatch, ErrCodeKeys},
		{types.ErrUnsupportedFormat, ErrCodeUnsupported},
		{types.ErrReadOnly, ErrCodeReadOnly},
		{types.ErrExists, ErrCodeExists},
		{types.ErrNoSpace, ErrCodeNoSpace},
		{context.Canceled, ErrCodeCancelled},
		{errors.New("disk on fire"), ErrCodeNandAccess},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrCode(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("nothing", nil))

	err := Wrap("failed to mount USER", types.ErrMissingKey)
	var ce *CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeKeys, ce.Code)
	assert.ErrorIs(t, err, types.ErrMissingKey)
	assert.Equal(t, "failed to mount USER: missing BIS key", err.Error())

	orig := NewError(ErrCodeInvalidInput, "bad", nil)
	assert.Same(t, orig, Wrap("outer", orig))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 GiB", FormatBytes(0x80000000))
}

func TestProgressUpdate(t *testing.T) {
	u := ProgressUpdate{Completed: 50, Total: 200, ElapsedTime: 10 * time.Second}
	assert.Equal(t, 25, u.Percent())
	assert.Equal(t, 5.0, u.Rate())
	assert.Equal(t, 30*time.Second, u.ETA())

	assert.Equal(t, 0, (&ProgressUpdate{}).Percent())
	assert.Equal(t, time.Duration(0), (&ProgressUpdate{Total: 10}).ETA())
}

func TestProgressBar_Plain(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, true)

	bar.Update(ProgressUpdate{Message: "copying", Completed: 512, Total: 1024})
	bar.Update(ProgressUpdate{Message: "copying", Completed: 513, Total: 1024})
	bar.Update(ProgressUpdate{Message: "copying", Completed: 1024, Total: 1024})
	bar.Done()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"), "unchanged percentages are not redrawn")
	assert.Contains(t, out, "copying")
	assert.Contains(t, out, "1.0 KiB/1.0 KiB")
	assert.Contains(t, out, "100%")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressFor(t *testing.T) {
	ctx := NewContext()
	ctx.OutputFormat = FormatJSON
	var buf bytes.Buffer
	ProgressFor(ctx, &buf)()
	assert.Nil(t, ctx.ProgressCallback)

	ctx.OutputFormat = FormatTable
	done := ProgressFor(ctx, &buf)
	require.NotNil(t, ctx.ProgressCallback)
	ctx.Progress(ProgressUpdate{Message: "x", Completed: 1, Total: 2})
	done()
	assert.Contains(t, buf.String(), "50%")
}

func TestContext_ApplyVerbosity(t *testing.T) {
	ctx := NewContext()
	ctx.ApplyVerbosity()
	assert.Equal(t, logrus.WarnLevel, ctx.Logger.GetLevel())

	ctx.Verbose = true
	ctx.ApplyVerbosity()
	assert.Equal(t, logrus.DebugLevel, ctx.Logger.GetLevel())

	ctx.Quiet = true
	ctx.ApplyVerbosity()
	assert.Equal(t, logrus.ErrorLevel, ctx.Logger.GetLevel())
}

func TestWriteStructured(t *testing.T) {
	v := map[string]int{"parts": 3}
	var buf bytes.Buffer

	done, err := WriteStructured(&buf, v, FormatJSON)
	assert.True(t, done)
	require.NoError(t, err)
	assert.JSONEq(t, `{"parts": 3}`, buf.String())

	buf.Reset()
	done, err = WriteStructured(&buf, v, FormatYAML)
	assert.True(t, done)
	require.NoError(t, err)
	assert.Equal(t, "parts: 3\n", buf.String())

	done, err = WriteStructured(&buf, v, FormatTable)
	assert.False(t, done)
	assert.NoError(t, err)

	done, err = WriteStructured(&buf, v, "xml")
	assert.True(t, done)
	assert.Equal(t, ErrCodeInvalidInput, ErrCode(err))
}
