// Command catalog-import loads refractiveindex.info YAML pages or CSV
// dispersion tables into a material catalog. The catalog driver and its
// connection settings come from the environment, same as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"opticore/internal/catalog"
	"opticore/internal/material"
	"opticore/pkg/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "catalog-import:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	prefix := fs.String("prefix", "", "catalog id prefix, e.g. main/SiO2")
	dryRun := fs.Bool("dry-run", false, "parse and report without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no input files; usage: catalog-import [-prefix p] [-dry-run] file.yml ...")
	}

	_ = godotenv.Load()

	ctx := context.Background()
	src, err := catalog.OpenFromEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var imported, failed int
	for _, path := range fs.Args() {
		id, err := importFile(ctx, src, path, *prefix, *dryRun)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			continue
		}
		imported++
		fmt.Printf("ok   %s -> %s\n", path, id)
	}
	fmt.Printf("%d imported, %d failed\n", imported, failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

// importFile parses one input file and writes it under an id derived from
// the file name, returning the id.
func importFile(ctx context.Context, src catalog.Source, path, prefix string, dryRun bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	var m domain.Material
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yml", ".yaml":
		m, err = catalog.ParseRII(name, f)
		if err != nil {
			return "", err
		}
	case ".csv":
		samples, err := material.ParseCSVTable(f)
		if err != nil {
			return "", err
		}
		m = domain.Material{Name: name, Kind: domain.MaterialTabulated, Samples: samples}
	default:
		return "", fmt.Errorf("unsupported extension %q", filepath.Ext(base))
	}
	if err := m.Validate(); err != nil {
		return "", err
	}

	id := name
	if prefix != "" {
		id = strings.TrimSuffix(prefix, "/") + "/" + name
	}
	m.SourceID = id
	if dryRun {
		return id, nil
	}
	if err := src.Put(ctx, id, m); err != nil {
		return "", err
	}
	return id, nil
}
