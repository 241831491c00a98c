package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"opticore/internal/blob"
	"opticore/pkg/domain"
)

func sampleResult() domain.SimulationResult {
	return domain.SimulationResult{
		Request: domain.SimulationRequest{
			Expression:   "(H*L)^5",
			StartNm:      400,
			EndNm:        402,
			Steps:        3,
			Polarization: domain.PolarizationTE,
		},
		Samples: []domain.SpectrumSample{
			{WavelengthNm: 400, Reflectance: 0.25, Transmittance: 0.75, PhaseRad: 0.1},
			{WavelengthNm: 401, Reflectance: 0.5, Transmittance: 0.5, PhaseRad: 0.2},
			{WavelengthNm: 402, Reflectance: 0.75, Transmittance: 0.25, PhaseRad: 0.3},
		},
		Warnings:   []domain.Warning{{Code: domain.WarnExtrapolated, Message: "SiO2 held at 400nm"}},
		ComputedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"csv", "json", "xlsx", "pdf", "png"} {
		if _, err := ParseFormat(name); err != nil {
			t.Fatalf("%s rejected: %v", name, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatal("expected rejection of unknown format")
	}
}

func TestMaterializeCSV(t *testing.T) {
	artifact, err := Materialize(sampleResult(), FormatCSV)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(artifact.Data)), "\n")
	if lines[0] != "wavelength_nm,reflectance,transmittance,phase_rad" {
		t.Fatalf("bad header %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[1] != "400,0.25,0.75,0.1" {
		t.Fatalf("bad first row %q", lines[1])
	}
	if artifact.ContentType != "text/csv" {
		t.Fatalf("content type %q", artifact.ContentType)
	}
}

func TestMaterializeJSONRoundTrips(t *testing.T) {
	artifact, err := Materialize(sampleResult(), FormatJSON)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	var decoded domain.SimulationResult
	if err := json.Unmarshal(artifact.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Samples) != 3 || decoded.Request.Expression != "(H*L)^5" {
		t.Fatalf("round trip lost content: %+v", decoded)
	}
	if decoded.Samples[1].Reflectance != 0.5 {
		t.Fatalf("sample mismatch: %+v", decoded.Samples[1])
	}
}

func TestMaterializeXLSX(t *testing.T) {
	artifact, err := Materialize(sampleResult(), FormatXLSX)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 samples, got %d rows", len(rows))
	}
	if rows[0][0] != "wavelength_nm" {
		t.Fatalf("bad header row %v", rows[0])
	}
	if rows[1][0] != "400" {
		t.Fatalf("bad sample row %v", rows[1])
	}

	params, err := f.GetRows("Parameters")
	if err != nil {
		t.Fatalf("parameters sheet: %v", err)
	}
	if len(params) == 0 || params[0][0] != "expression" || params[0][1] != "(H*L)^5" {
		t.Fatalf("parameters sheet wrong: %v", params)
	}
}

func TestMaterializePDF(t *testing.T) {
	result := sampleResult()
	// Enough samples to force a page break.
	for i := 0; i < 100; i++ {
		result.Samples = append(result.Samples, domain.SpectrumSample{WavelengthNm: 403 + float64(i)})
	}
	artifact, err := Materialize(result, FormatPDF)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if !bytes.HasPrefix(artifact.Data, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", artifact.Data[:8])
	}
	if artifact.ContentType != "application/pdf" {
		t.Fatalf("content type %q", artifact.ContentType)
	}
}

func TestMaterializePNG(t *testing.T) {
	artifact, err := Materialize(sampleResult(), FormatPNG)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if !bytes.HasPrefix(artifact.Data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("not a png: %x", artifact.Data[:8])
	}
}

func TestExporterStoresAndLists(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	exporter := NewExporter(store)

	info, err := exporter.Export(ctx, "job42", sampleResult(), FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "spectra/job42/spectrum.csv" {
		t.Fatalf("unexpected key %q", info.Key)
	}
	if info.Metadata["job"] != "job42" || info.Metadata["format"] != "csv" {
		t.Fatalf("metadata wrong: %+v", info.Metadata)
	}

	// The key is create-only, a second identical export fails.
	if _, err := exporter.Export(ctx, "job42", sampleResult(), FormatCSV); err == nil {
		t.Fatal("expected duplicate export to fail")
	}

	if _, err := exporter.Export(ctx, "job42", sampleResult(), FormatJSON); err != nil {
		t.Fatalf("export json: %v", err)
	}
	infos, err := exporter.List(ctx, "job42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 artifacts, got %+v", infos)
	}

	got, data, err := exporter.Open(ctx, "job42", "spectrum.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.ContentType != "text/csv" || !bytes.Contains(data, []byte("wavelength_nm")) {
		t.Fatalf("artifact content wrong: %+v %q", got, data[:20])
	}

	if _, _, err := exporter.Open(ctx, "job42", "missing.csv"); err == nil {
		t.Fatal("expected missing artifact error")
	}
}

func TestExporterPresignsWhenSupported(t *testing.T) {
	exporter := NewExporter(blob.NewMockS3ForTests())
	info, err := exporter.Export(context.Background(), "job7", sampleResult(), FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(info.URL, "spectra/job7/spectrum.csv") {
		t.Fatalf("expected presigned url, got %q", info.URL)
	}
}
