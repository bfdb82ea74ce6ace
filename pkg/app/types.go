package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates bytes per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// ETA estimates time to completion
func (p *ProgressUpdate) ETA() time.Duration {
	if p.Completed == 0 || p.Total == 0 {
		return 0
	}
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	remaining := p.Total - p.Completed
	return time.Duration(float64(remaining)/rate) * time.Second
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNandAccess        = "NAND_ACCESS"
	ErrCodePartitionNotFound = "PARTITION_NOT_FOUND"
	ErrCodeKeys              = "BIS_KEYS"
	ErrCodeUnsupported       = "UNSUPPORTED"
	ErrCodeReadOnly          = "READ_ONLY"
	ErrCodeExists            = "ALREADY_EXISTS"
	ErrCodeNoSpace           = "NO_SPACE"
	ErrCodeCancelled         = "CANCELLED"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrCode maps an error from the storage layers to an error code
func ErrCode(err error) string {
	var ce *CommonError
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, types.ErrPartitionNotFound):
		return ErrCodePartitionNotFound
	case errors.Is(err, types.ErrMissingKey), errors.Is(err, types.ErrKeyMismatch):
		return ErrCodeKeys
	case errors.Is(err, types.ErrUnsupportedFormat):
		return ErrCodeUnsupported
	case errors.Is(err, types.ErrReadOnly):
		return ErrCodeReadOnly
	case errors.Is(err, types.ErrExists):
		return ErrCodeExists
	case errors.Is(err, types.ErrNoSpace):
		return ErrCodeNoSpace
	case errors.Is(err, context.Canceled):
		return ErrCodeCancelled
	default:
		return ErrCodeNandAccess
	}
}

// Wrap turns err into a CommonError with a code derived from it. CommonErrors
// and nil pass through unchanged.
func Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return err
	}
	return NewError(ErrCode(err), message, err)
}

// FormatBytes formats byte count as human readable
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
