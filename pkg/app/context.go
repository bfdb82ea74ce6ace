package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/device"
	"github.com/deploymenttheory/go-nxnand/internal/services"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool
	NoColor      bool

	// Out receives formatted results, Logger receives diagnostics
	Out    io.Writer
	Logger *logrus.Logger

	// Device settings and the BIS keys gathered from flags, key file and config
	Config *device.Config
	Keys   types.BisKeys

	// Common timeouts
	DefaultTimeout time.Duration

	// Progress reporting
	ProgressCallback func(ProgressUpdate)
}

// NewContext creates a new application context with default device settings
func NewContext() *Context {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Out:            os.Stdout,
		Logger:         logger,
		Config:         device.DefaultConfig(),
		DefaultTimeout: 30 * time.Second,
	}
}

// ApplyVerbosity sets the log level from the Verbose and Quiet flags
func (c *Context) ApplyVerbosity() {
	switch {
	case c.Quiet:
		c.Logger.SetLevel(logrus.ErrorLevel)
	case c.Verbose:
		c.Logger.SetLevel(logrus.DebugLevel)
	default:
		c.Logger.SetLevel(logrus.WarnLevel)
	}
	if c.NoColor {
		c.Logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(ProgressUpdate)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(update ProgressUpdate) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(update)
	}
}

// Log outputs a message when running verbose
func (c *Context) Log(message string) {
	c.Logger.Info(message)
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	c.Logger.Error(message)
}

// OpenNand opens a dump with the context's keys and device settings
func (c *Context) OpenNand(path string) (*services.NandService, error) {
	s, err := services.OpenNand(path, services.Options{
		Keys:       c.Keys,
		SectorSize: c.Config.SectorSize,
		BufferSize: c.Config.BufferSize,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, NewError(ErrCodeNandAccess, "failed to open NAND dump", err)
	}
	return s, nil
}
