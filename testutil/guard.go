// Package testutil holds test helpers for enforcing import boundaries.
// The public domain package must stay free of internal packages, and
// storage drivers must stay behind their facades; these helpers give
// packages a cheap way to assert that locally.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoDirectImports parses every non-test .go file in dir and fails the
// test for each import path the forbidden predicate matches. The reason is
// appended to the failure message.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	violations, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	for _, v := range violations {
		t.Errorf("forbidden import %s (%s)", v, reason)
	}
}

// InternalImportForbidden matches any path under an internal tree. The
// domain package uses it to stay implementation-free.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// DriverImportForbidden matches imports of the storage driver packages
// that only their facade may reach.
func DriverImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/blob/") ||
		strings.Contains(path, "/internal/infra/persistence/")
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var violations []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				violations = append(violations, name+": "+path)
			}
		}
	}
	return violations, nil
}
