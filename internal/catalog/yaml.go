package catalog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"opticore/pkg/domain"
)

// riiDocument is the shape of a refractiveindex.info database page.
type riiDocument struct {
	References string     `yaml:"REFERENCES"`
	Comments   string     `yaml:"COMMENTS"`
	Data       []riiEntry `yaml:"DATA"`
}

type riiEntry struct {
	Type            string `yaml:"type"`
	Data            string `yaml:"data"`
	Coefficients    string `yaml:"coefficients"`
	WavelengthRange string `yaml:"wavelength_range"`
}

// ParseRII decodes a refractiveindex.info YAML page into a material
// definition named name. The first usable DATA entry wins: tabulated nk,
// tabulated n, or a dispersion formula 1..9. Wavelengths in the database are
// micrometres unless the values are implausibly large for that unit.
func ParseRII(name string, r io.Reader) (domain.Material, error) {
	var doc riiDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return domain.Material{}, domain.ValidationError{Field: "yaml", Message: err.Error()}
	}
	for _, entry := range doc.Data {
		kind := strings.TrimSpace(entry.Type)
		switch {
		case kind == "tabulated nk" || kind == "tabulated n" || kind == "tabulated k":
			samples, err := parseTabulated(entry.Data, kind)
			if err != nil {
				return domain.Material{}, err
			}
			return domain.Material{
				Name:    name,
				Kind:    domain.MaterialTabulated,
				Samples: samples,
				Comment: strings.TrimSpace(doc.Comments),
			}, nil
		case strings.HasPrefix(kind, "formula "):
			id, err := strconv.Atoi(strings.TrimPrefix(kind, "formula "))
			if err != nil || id < 1 || id > 9 {
				return domain.Material{}, domain.ValidationError{Field: "yaml", Message: "unknown formula type " + kind}
			}
			coeffs, err := parseFloats(entry.Coefficients)
			if err != nil {
				return domain.Material{}, domain.ValidationError{Field: "yaml", Message: "bad coefficients: " + err.Error()}
			}
			formula := &domain.DispersionFormula{ID: id, Coefficients: coeffs}
			if entry.WavelengthRange != "" {
				bounds, err := parseFloats(entry.WavelengthRange)
				if err != nil || len(bounds) != 2 {
					return domain.Material{}, domain.ValidationError{Field: "yaml", Message: "bad wavelength_range " + entry.WavelengthRange}
				}
				scale := unitScale(bounds[0])
				formula.MinNm = bounds[0] * scale
				formula.MaxNm = bounds[1] * scale
			}
			return domain.Material{
				Name:    name,
				Kind:    domain.MaterialFormula,
				Formula: formula,
				Comment: strings.TrimSpace(doc.Comments),
			}, nil
		}
	}
	return domain.Material{}, domain.ValidationError{Field: "yaml", Message: "no usable DATA entry"}
}

func parseTabulated(data, kind string) ([]domain.DispersionSample, error) {
	var samples []domain.DispersionSample
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		values, err := parseFloats(line)
		if err != nil {
			return nil, domain.ValidationError{Field: "yaml", Message: "bad table row " + line}
		}
		sample := domain.DispersionSample{WavelengthNm: values[0]}
		switch kind {
		case "tabulated nk":
			if len(values) < 3 {
				return nil, domain.ValidationError{Field: "yaml", Message: "nk row needs three columns: " + line}
			}
			sample.N, sample.K = values[1], values[2]
		case "tabulated n":
			sample.N = values[1]
		case "tabulated k":
			sample.N, sample.K = 1, values[1]
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return nil, domain.ValidationError{Field: "yaml", Message: "empty dispersion table"}
	}
	scale := unitScale(samples[0].WavelengthNm)
	for i := range samples {
		samples[i].WavelengthNm *= scale
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].WavelengthNm < samples[j].WavelengthNm })
	return samples, nil
}

// unitScale converts database wavelengths to nanometres. The unit is decided
// once per table from its first value: below 20 reads as micrometres, the
// database's native unit. A single decision keeps IR tables that cross 20 µm
// in one unit instead of splitting them row by row.
func unitScale(first float64) float64 {
	if first < 20 {
		return 1000
	}
	return 1
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
