package material

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"opticore/pkg/domain"
)

// micronThresholdNm: imported tables rarely state units. A first wavelength
// below 20 cannot plausibly be nanometres, so such tables read as micrometres
// and are scaled by 1000.
const micronThreshold = 20.0

// ParseCSVTable reads a wavelength,n[,k] table into dispersion samples.
// A non-numeric first row is treated as a header and skipped. Wavelength
// units follow the micron heuristic above.
func ParseCSVTable(r io.Reader) ([]domain.DispersionSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var samples []domain.DispersionSample
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.ValidationError{Field: "csv", Message: err.Error()}
		}
		row++
		if len(record) < 2 {
			return nil, domain.ValidationError{Field: "csv", Message: "each row needs wavelength and n columns"}
		}
		wl, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			if row == 1 {
				continue // header
			}
			return nil, domain.ValidationError{Field: "csv", Message: "non-numeric wavelength in row " + strconv.Itoa(row)}
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, domain.ValidationError{Field: "csv", Message: "non-numeric index in row " + strconv.Itoa(row)}
		}
		k := 0.0
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			k, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
			if err != nil {
				return nil, domain.ValidationError{Field: "csv", Message: "non-numeric extinction in row " + strconv.Itoa(row)}
			}
		}
		samples = append(samples, domain.DispersionSample{WavelengthNm: wl, N: n, K: k})
	}
	if len(samples) == 0 {
		return nil, domain.ValidationError{Field: "csv", Message: "no samples found"}
	}
	if samples[0].WavelengthNm < micronThreshold {
		for i := range samples {
			samples[i].WavelengthNm *= 1000
		}
	}
	return samples, nil
}
