// Package persistence selects a project store driver from the environment.
package persistence

import (
	"fmt"
	"os"

	"opticore/internal/infra/persistence/memory"
	"opticore/internal/infra/persistence/sqlite"
	"opticore/pkg/domain"
)

// Environment variables read by OpenFromEnv.
const (
	EnvDriver     = "OPTICORE_STORAGE_DRIVER"
	EnvSQLitePath = "OPTICORE_SQLITE_PATH"
)

// Driver names accepted by OpenFromEnv.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// OpenFromEnv constructs the project store named by OPTICORE_STORAGE_DRIVER.
// An unset driver defaults to sqlite, matching a standalone deployment.
func OpenFromEnv() (domain.ProjectStore, error) {
	driver := os.Getenv(EnvDriver)
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite, "":
		return sqlite.NewStore(os.Getenv(EnvSQLitePath))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
