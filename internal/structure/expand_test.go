package structure

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"opticore/pkg/domain"
)

func defs() Definitions {
	return Definitions{
		Materials: map[string]domain.Material{
			"SiO2":   {Name: "SiO2", Kind: domain.MaterialConstant, N: 1.45},
			"TiO2":   {Name: "TiO2", Kind: domain.MaterialConstant, N: 2.35},
			"Defect": {Name: "Defect", Kind: domain.MaterialConstant, N: 1, Defect: true},
		},
		Arrays: map[string]domain.Array{
			"Pair": {Name: "Pair", Elements: []domain.ArrayElement{
				{Ref: "SiO2", ThicknessNm: 94.8},
				{Ref: "TiO2", ThicknessNm: 58.5},
			}},
			"Mirror": {Name: "Mirror", Elements: []domain.ArrayElement{
				{Ref: "Pair"},
				{Ref: "Pair"},
			}},
		},
	}
}

func TestExpandBareMaterialsUseDefaultThickness(t *testing.T) {
	layers, err := Expand("SiO2*TiO2", defs(), 100)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []domain.Layer{
		{Material: "SiO2", ThicknessNm: 100},
		{Material: "TiO2", ThicknessNm: 100},
	}
	if !reflect.DeepEqual(layers, want) {
		t.Fatalf("got %+v want %+v", layers, want)
	}
}

func TestExpandTrivialGroupingIsIdentity(t *testing.T) {
	a, err := Expand("SiO2*TiO2", defs(), 100)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	b, err := Expand("(SiO2*TiO2)^1", defs(), 100)
	if err != nil {
		t.Fatalf("expand grouped: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("grouping changed expansion: %+v vs %+v", a, b)
	}
}

func TestExpandRepetition(t *testing.T) {
	layers, err := Expand("(SiO2)^3", defs(), 120)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	for _, l := range layers {
		if l.Material != "SiO2" || l.ThicknessNm != 120 {
			t.Fatalf("unexpected layer %+v", l)
		}
	}
}

func TestExpandZeroRepeatYieldsEmptyStack(t *testing.T) {
	layers, err := Expand("(SiO2*TiO2)^0", defs(), 100)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(layers) != 0 {
		t.Fatalf("^0 must expand to nothing, got %+v", layers)
	}
}

func TestExpandArrayElementThicknesses(t *testing.T) {
	layers, err := Expand("(Pair)^2 * Defect * (Pair)^2", defs(), 100)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(layers) != 9 {
		t.Fatalf("expected 9 layers, got %d", len(layers))
	}
	if layers[0].ThicknessNm != 94.8 || layers[1].ThicknessNm != 58.5 {
		t.Fatalf("array thicknesses not applied: %+v", layers[:2])
	}
	if layers[4].Material != "Defect" || layers[4].ThicknessNm != 100 {
		t.Fatalf("defect term wrong: %+v", layers[4])
	}
}

func TestExpandNestedArrays(t *testing.T) {
	layers, err := Expand("Mirror", defs(), 100)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(layers) != 4 {
		t.Fatalf("nested array should flatten to 4 layers, got %d", len(layers))
	}
}

func TestExpandDeterministic(t *testing.T) {
	first, err := Expand("(Pair)^3*SiO2", defs(), 80)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Expand("(Pair)^3*SiO2", defs(), 80)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("expansion not deterministic")
		}
	}
}

func TestExpandUnknownReference(t *testing.T) {
	_, err := Expand("SiO2*Unobtanium", defs(), 100)
	var unknown domain.UnknownReferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownReferenceError, got %v", err)
	}
	if unknown.Name != "Unobtanium" {
		t.Fatalf("error must name the exact identifier, got %q", unknown.Name)
	}
}

func TestExpandSyntaxErrors(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"", "empty"},
		{"   ", "empty"},
		{"(SiO2*TiO2", "unbalanced"},
		{"SiO2*)", "expected"},
		{"SiO2**TiO2", "expected"},
		{"(SiO2)^", "repeat count"},
		{"(SiO2)^x", "repeat count"},
		{"(SiO2)^-2", "unexpected character"},
		{"SiO2 TiO2", "unexpected"},
	}
	for _, c := range cases {
		_, err := Expand(c.expr, defs(), 100)
		var syn domain.SyntaxError
		if !errors.As(err, &syn) {
			t.Fatalf("%q: expected SyntaxError, got %v", c.expr, err)
		}
		if !strings.Contains(syn.Message, c.want) {
			t.Fatalf("%q: message %q missing %q", c.expr, syn.Message, c.want)
		}
	}
}

func TestExpandDirectCycle(t *testing.T) {
	d := defs()
	d.Arrays["Loop"] = domain.Array{Name: "Loop", Elements: []domain.ArrayElement{{Ref: "Loop"}}}
	_, err := Expand("Loop", d, 100)
	var circular domain.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}
	if len(circular.Cycle) < 2 || circular.Cycle[0] != "Loop" {
		t.Fatalf("cycle path should start at Loop: %v", circular.Cycle)
	}
}

func TestExpandTransitiveCycle(t *testing.T) {
	d := defs()
	d.Arrays["X"] = domain.Array{Name: "X", Elements: []domain.ArrayElement{{Ref: "Y"}}}
	d.Arrays["Y"] = domain.Array{Name: "Y", Elements: []domain.ArrayElement{{Ref: "X"}}}
	_, err := Expand("X", d, 100)
	var circular domain.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("expected CircularReferenceError, got %v", err)
	}
}

func TestCheckArrayCyclesAtDefinitionTime(t *testing.T) {
	arrays := map[string]domain.Array{
		"X": {Name: "X", Elements: []domain.ArrayElement{{Ref: "Y"}}},
		"Y": {Name: "Y", Elements: []domain.ArrayElement{{Ref: "X"}}},
	}
	if err := CheckArrayCycles(arrays); err == nil {
		t.Fatalf("expected cycle detection")
	}
	ok := map[string]domain.Array{
		"Pair":   defs().Arrays["Pair"],
		"Mirror": defs().Arrays["Mirror"],
	}
	if err := CheckArrayCycles(ok); err != nil {
		t.Fatalf("acyclic arrays flagged: %v", err)
	}
}

func TestExpandZeroThicknessOnlyForDefects(t *testing.T) {
	d := defs()
	d.Arrays["Bad"] = domain.Array{Name: "Bad", Elements: []domain.ArrayElement{{Ref: "SiO2", ThicknessNm: 0}}}
	if _, err := Expand("Bad", d, 100); err == nil {
		t.Fatalf("zero thickness for non-defect material must be rejected")
	}
	d.Arrays["Marker"] = domain.Array{Name: "Marker", Elements: []domain.ArrayElement{{Ref: "Defect", ThicknessNm: 0}}}
	if _, err := Expand("Marker", d, 100); err != nil {
		t.Fatalf("defect marker layer rejected: %v", err)
	}
}

func TestExpandLayerLimit(t *testing.T) {
	_, err := Expand("(Pair)^5000", defs(), 100)
	var limit domain.LimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	if limit.What != "layers" {
		t.Fatalf("unexpected limit %+v", limit)
	}
}
