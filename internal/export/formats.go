// Package export materializes simulation results into downloadable
// artifacts and stores them alongside their sweep job.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image/color"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"opticore/pkg/domain"
)

// Format names a supported artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatXLSX, FormatPDF, FormatPNG:
		return Format(s), nil
	default:
		return "", domain.ValidationError{Field: "format", Message: "must be one of csv, json, xlsx, pdf, png"}
	}
}

// Artifact is an encoded result ready for storage or download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Materialize encodes a result in the requested format.
func Materialize(result domain.SimulationResult, format Format) (Artifact, error) {
	switch format {
	case FormatCSV:
		return encodeCSV(result)
	case FormatJSON:
		return encodeJSON(result)
	case FormatXLSX:
		return encodeXLSX(result)
	case FormatPDF:
		return encodePDF(result)
	case FormatPNG:
		return encodePNG(result)
	default:
		return Artifact{}, domain.ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", format)}
	}
}

func encodeCSV(result domain.SimulationResult) (Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"wavelength_nm", "reflectance", "transmittance", "phase_rad"}); err != nil {
		return Artifact{}, err
	}
	for _, s := range result.Samples {
		record := []string{
			strconv.FormatFloat(s.WavelengthNm, 'g', -1, 64),
			strconv.FormatFloat(s.Reflectance, 'g', -1, 64),
			strconv.FormatFloat(s.Transmittance, 'g', -1, 64),
			strconv.FormatFloat(s.PhaseRad, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return Artifact{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: "spectrum.csv", ContentType: "text/csv", Data: buf.Bytes()}, nil
}

func encodeJSON(result domain.SimulationResult) (Artifact, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: "spectrum.json", ContentType: "application/json", Data: data}, nil
}

func encodeXLSX(result domain.SimulationResult) (Artifact, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := []any{"wavelength_nm", "reflectance", "transmittance", "phase_rad"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return Artifact{}, err
	}
	for i, s := range result.Samples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return Artifact{}, err
		}
		row := []any{s.WavelengthNm, s.Reflectance, s.Transmittance, s.PhaseRad}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return Artifact{}, err
		}
	}

	if _, err := f.NewSheet("Parameters"); err != nil {
		return Artifact{}, err
	}
	req := result.Request
	rows := [][]any{
		{"expression", req.Expression},
		{"start_nm", req.StartNm},
		{"end_nm", req.EndNm},
		{"steps", req.Steps},
		{"angle_deg", req.AngleDeg},
		{"polarization", string(req.Polarization)},
		{"default_thickness_nm", req.DefaultThicknessNm},
		{"computed_at", result.ComputedAt.Format(time.RFC3339)},
		{"warnings", len(result.Warnings)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return Artifact{}, err
		}
		if err := f.SetSheetRow("Parameters", cell, &row); err != nil {
			return Artifact{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    "spectrum.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

// pdfRowsPerPage keeps the sample table inside A4 with the fonts below.
const pdfRowsPerPage = 40

func encodePDF(result domain.SimulationResult) (Artifact, error) {
	req := result.Request
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Spectral Simulation Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Structure: %s", req.Expression))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Range: %g-%g nm in %d steps", req.StartNm, req.EndNm, req.Steps))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Incidence: %g deg, %s polarization", req.AngleDeg, req.Polarization))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Computed: %s", result.ComputedAt.Format(time.RFC3339)))
	pdf.Ln(10)

	if len(result.Warnings) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, fmt.Sprintf("Warnings (%d)", len(result.Warnings)))
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 9)
		for _, warn := range result.Warnings {
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s", warn.Code, warn.Message), "", "L", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 10)
	writePDFHeader(pdf)
	pdf.SetFont("Helvetica", "", 9)
	for i, s := range result.Samples {
		if i > 0 && i%pdfRowsPerPage == 0 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 10)
			writePDFHeader(pdf)
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.Cell(40, 5, strconv.FormatFloat(s.WavelengthNm, 'f', 2, 64))
		pdf.Cell(40, 5, strconv.FormatFloat(s.Reflectance, 'f', 6, 64))
		pdf.Cell(40, 5, strconv.FormatFloat(s.Transmittance, 'f', 6, 64))
		pdf.Cell(40, 5, strconv.FormatFloat(s.PhaseRad, 'f', 6, 64))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: "spectrum.pdf", ContentType: "application/pdf", Data: buf.Bytes()}, nil
}

func writePDFHeader(pdf *gofpdf.Fpdf) {
	pdf.Cell(40, 6, "Wavelength (nm)")
	pdf.Cell(40, 6, "R")
	pdf.Cell(40, 6, "T")
	pdf.Cell(40, 6, "Phase (rad)")
	pdf.Ln(7)
}

func encodePNG(result domain.SimulationResult) (Artifact, error) {
	p := plot.New()
	p.Title.Text = "Spectral response: " + result.Request.Expression
	p.X.Label.Text = "Wavelength (nm)"
	p.Y.Label.Text = "R / T"
	p.Add(plotter.NewGrid())

	rPts := make(plotter.XYs, len(result.Samples))
	tPts := make(plotter.XYs, len(result.Samples))
	for i, s := range result.Samples {
		rPts[i].X, rPts[i].Y = s.WavelengthNm, s.Reflectance
		tPts[i].X, tPts[i].Y = s.WavelengthNm, s.Transmittance
	}
	rLine, err := plotter.NewLine(rPts)
	if err != nil {
		return Artifact{}, err
	}
	rLine.Color = color.RGBA{R: 0xc0, G: 0x20, B: 0x20, A: 0xff}
	tLine, err := plotter.NewLine(tPts)
	if err != nil {
		return Artifact{}, err
	}
	tLine.Color = color.RGBA{R: 0x20, G: 0x40, B: 0xc0, A: 0xff}
	p.Add(rLine, tLine)
	p.Legend.Add("R", rLine)
	p.Legend.Add("T", tLine)

	writer, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return Artifact{}, err
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: "spectrum.png", ContentType: "image/png", Data: buf.Bytes()}, nil
}
