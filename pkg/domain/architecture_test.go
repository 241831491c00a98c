package domain

import (
	"testing"

	"opticore/testutil"
)

// The domain package is the public vocabulary of the module and must not
// reach into implementation packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"domain stays free of implementation packages")
}
