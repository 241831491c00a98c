package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"opticore/internal/infra/persistence/memory"
	"opticore/internal/infra/persistence/sqlite"
	"opticore/pkg/domain"
)

func sampleDocument(name string) domain.ProjectDocument {
	return domain.ProjectDocument{
		Name: name,
		Materials: []domain.Material{
			{Name: "H", Kind: domain.MaterialConstant, N: 2.35},
			{Name: "L", Kind: domain.MaterialConstant, N: 1.46},
		},
		Arrays: []domain.Array{
			{Name: "Pair", Elements: []domain.ArrayElement{
				{Ref: "H", ThicknessNm: 58.5},
				{Ref: "L", ThicknessNm: 94.2},
			}},
		},
		Expression: "(Pair)^10",
		Incidence:  "Air",
		Substrate:  "BK7",
		Request: domain.SimulationRequest{
			Expression:         "(Pair)^10",
			StartNm:            400,
			EndNm:              800,
			Steps:              101,
			Polarization:       domain.PolarizationTE,
			DefaultThicknessNm: 100,
		},
	}
}

// storeContract exercises the behavior every project store driver must share.
func storeContract(t *testing.T, store domain.ProjectStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.LoadProject(ctx, "absent"); !errors.As(err, &domain.NotFoundError{}) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	saved, err := store.SaveProject(ctx, sampleDocument("mirror"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.SchemaVersion != domain.ProjectSchemaVersion {
		t.Fatalf("schema version not stamped: %d", saved.SchemaVersion)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", saved)
	}

	loaded, err := store.LoadProject(ctx, "mirror")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Expression != "(Pair)^10" || len(loaded.Materials) != 2 || len(loaded.Arrays) != 1 {
		t.Fatalf("round trip lost content: %+v", loaded)
	}
	if loaded.Arrays[0].Elements[1].ThicknessNm != 94.2 {
		t.Fatalf("element thickness lost: %+v", loaded.Arrays[0])
	}
	if loaded.Request.Steps != 101 {
		t.Fatalf("request lost: %+v", loaded.Request)
	}

	// Resaving keeps CreatedAt and replaces content.
	update := sampleDocument("mirror")
	update.Expression = "(Pair)^12"
	resaved, err := store.SaveProject(ctx, update)
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if !resaved.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("CreatedAt changed on update: %v vs %v", resaved.CreatedAt, saved.CreatedAt)
	}
	loaded, err = store.LoadProject(ctx, "mirror")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Expression != "(Pair)^12" {
		t.Fatalf("update lost: %q", loaded.Expression)
	}

	if _, err := store.SaveProject(ctx, sampleDocument("antireflect")); err != nil {
		t.Fatalf("save second: %v", err)
	}
	docs, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].Name != "antireflect" || docs[1].Name != "mirror" {
		t.Fatalf("unexpected listing: %+v", docs)
	}

	if err := store.DeleteProject(ctx, "mirror"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteProject(ctx, "mirror"); !errors.As(err, &domain.NotFoundError{}) {
		t.Fatalf("expected NotFoundError on double delete, got %v", err)
	}
	if _, err := store.LoadProject(ctx, "mirror"); !errors.As(err, &domain.NotFoundError{}) {
		t.Fatalf("deleted project still loads: %v", err)
	}

	invalid := sampleDocument("")
	if _, err := store.SaveProject(ctx, invalid); err == nil {
		t.Fatal("expected validation failure for empty name")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	store := memory.NewStore()
	defer func() { _ = store.Close() }()
	storeContract(t, store)
}

func TestSQLiteStoreContract(t *testing.T) {
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	storeContract(t, store)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.db")
	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.SaveProject(context.Background(), sampleDocument("keep")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	doc, err := reopened.LoadProject(context.Background(), "keep")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if doc.Expression != "(Pair)^10" {
		t.Fatalf("content lost across reopen: %+v", doc)
	}
}

func TestMemoryStoreClockAndIsolation(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore().WithClock(func() time.Time { return base })
	saved, err := store.SaveProject(context.Background(), sampleDocument("iso"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !saved.CreatedAt.Equal(base) {
		t.Fatalf("clock not used: %v", saved.CreatedAt)
	}

	// Mutating a loaded copy must not leak into the store.
	loaded, err := store.LoadProject(context.Background(), "iso")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded.Materials[0].N = 99
	loaded.Arrays[0].Elements[0].ThicknessNm = 1
	again, err := store.LoadProject(context.Background(), "iso")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Materials[0].N == 99 || again.Arrays[0].Elements[0].ThicknessNm == 1 {
		t.Fatal("loaded document shares storage with the store")
	}
}

func TestOpenFromEnvSelectsDriver(t *testing.T) {
	t.Setenv(EnvDriver, DriverMemory)
	store, err := OpenFromEnv()
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	_ = store.Close()

	t.Setenv(EnvDriver, DriverSQLite)
	t.Setenv(EnvSQLitePath, filepath.Join(t.TempDir(), "env.db"))
	store, err = OpenFromEnv()
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	_ = store.Close()

	t.Setenv(EnvDriver, "bogus")
	if _, err := OpenFromEnv(); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
