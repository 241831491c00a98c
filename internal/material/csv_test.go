package material

import (
	"strings"
	"testing"
)

func TestParseCSVTableWithHeaderAndMicrons(t *testing.T) {
	in := "wavelength,n,k\n0.4,1.47,0\n0.6,1.45,0.002\n"
	samples, err := ParseCSVTable(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].WavelengthNm != 400 || samples[1].WavelengthNm != 600 {
		t.Fatalf("micron heuristic not applied: %+v", samples)
	}
	if samples[1].K != 0.002 {
		t.Fatalf("extinction lost: %+v", samples[1])
	}
}

func TestParseCSVTableNanometres(t *testing.T) {
	samples, err := ParseCSVTable(strings.NewReader("400,1.47\n600,1.45\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if samples[0].WavelengthNm != 400 {
		t.Fatalf("nanometre table must not be rescaled: %+v", samples[0])
	}
	if samples[0].K != 0 {
		t.Fatalf("missing k column should read as zero")
	}
}

func TestParseCSVTableRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"wavelength,n\n",
		"400\n",
		"400,abc\n",
		"400,1.5\nnope,1.4\n",
	}
	for _, in := range cases {
		if _, err := ParseCSVTable(strings.NewReader(in)); err == nil {
			t.Fatalf("expected failure for %q", in)
		}
	}
}
