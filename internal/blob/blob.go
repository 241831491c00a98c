// Package blob wraps the artifact storage drivers behind the core.Store
// interface. Call sites import this package only; the infra drivers stay an
// implementation detail (enforced by architecture_test.go).
package blob

import (
	"context"
	"fmt"
	"os"

	"opticore/internal/blob/core"
	"opticore/internal/infra/blob/fs"
	"opticore/internal/infra/blob/memory"
	"opticore/internal/infra/blob/s3"
)

type (
	// Driver identifies an artifact storage backend.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the artifact storage interface.
	Store = core.Store
)

const (
	// DriverFilesystem is the local directory driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-process test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound reports a missing key.
var ErrNotFound = core.ErrNotFound

// ErrUnsupported reports a capability a driver does not provide.
var ErrUnsupported = core.ErrUnsupported

// NewMemory returns an in-process store for tests.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a store rooted at the given directory.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewS3 returns an S3-backed store for the given configuration.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) { return s3.New(ctx, cfg) }

// S3Config configures the S3 driver.
type S3Config = s3.Config

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }

// Environment variables read by Open.
const (
	EnvDriver = "OPTICORE_BLOB_DRIVER"
	EnvFSRoot = "OPTICORE_BLOB_FS_ROOT"
)

// Open selects a driver from the environment.
//
//	OPTICORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	OPTICORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	OPTICORE_BLOB_S3_*: bucket settings, documented in the s3 driver
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv(EnvDriver)
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv(EnvFSRoot))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
