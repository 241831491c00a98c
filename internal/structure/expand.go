package structure

import (
	"fmt"

	"opticore/pkg/domain"
)

// Definitions is the reference environment an expression expands against.
type Definitions struct {
	Materials map[string]domain.Material
	Arrays    map[string]domain.Array
}

// Expand parses the expression and flattens it into the ordered layer
// sequence. Bare material terms take defaultThicknessNm; array elements carry
// their own thicknesses. Expansion is purely structural and deterministic:
// the same inputs always yield the same sequence.
func Expand(expression string, defs Definitions, defaultThicknessNm float64) ([]domain.Layer, error) {
	terms, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	if defaultThicknessNm <= 0 {
		return nil, domain.ValidationError{Field: "default_thickness_nm", Message: "must be positive"}
	}
	e := &expander{defs: defs, defaultNm: defaultThicknessNm, inProgress: make(map[string]bool)}
	layers := []domain.Layer{}
	if err := e.sequence(terms, &layers); err != nil {
		return nil, err
	}
	return layers, nil
}

// Validate parses and expands without keeping the result, reporting the
// first problem an expression would hit.
func Validate(expression string, defs Definitions, defaultThicknessNm float64) error {
	_, err := Expand(expression, defs, defaultThicknessNm)
	return err
}

// ExpressionReferences returns the distinct identifiers an expression names,
// in first-appearance order. Unknown names are included; callers use this for
// in-use guards, not for resolution.
func ExpressionReferences(expression string) ([]string, error) {
	terms, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var refs []string
	var walk func([]node)
	walk = func(terms []node) {
		for _, t := range terms {
			if t.ref != "" {
				if !seen[t.ref] {
					seen[t.ref] = true
					refs = append(refs, t.ref)
				}
				continue
			}
			walk(t.children)
		}
	}
	walk(terms)
	return refs, nil
}

// ArrayReferences returns the material and array names an array's elements
// refer to, for in-use guards at definition time.
func ArrayReferences(a domain.Array) []string {
	refs := make([]string, 0, len(a.Elements))
	for _, el := range a.Elements {
		refs = append(refs, el.Ref)
	}
	return refs
}

// CheckArrayCycles walks every defined array and reports the first circular
// reference, so cycles are caught eagerly at definition time rather than at
// the first expansion that happens to touch them.
func CheckArrayCycles(arrays map[string]domain.Array) error {
	e := &expander{
		defs:       Definitions{Materials: map[string]domain.Material{}, Arrays: arrays},
		defaultNm:  1,
		inProgress: make(map[string]bool),
		probe:      true,
	}
	for name := range arrays {
		var discard []domain.Layer
		if err := e.array(name, &discard); err != nil {
			if _, ok := err.(domain.CircularReferenceError); ok {
				return err
			}
		}
	}
	return nil
}

// expander flattens term trees against the definition environment. Array
// expansion keeps an explicit in-progress set and path so cycles are detected
// as a first-class step instead of blowing the stack.
type expander struct {
	defs       Definitions
	defaultNm  float64
	inProgress map[string]bool
	path       []string
	// probe mode tolerates unknown material references; it is used by the
	// definition-time cycle check, which runs before all materials exist.
	probe bool
}

func (e *expander) sequence(terms []node, out *[]domain.Layer) error {
	for _, term := range terms {
		if err := e.term(term, out); err != nil {
			return err
		}
	}
	return nil
}

func (e *expander) term(t node, out *[]domain.Layer) error {
	if t.ref != "" {
		return e.reference(t.ref, e.defaultNm, out)
	}
	for i := 0; i < t.repeat; i++ {
		if err := e.sequence(t.children, out); err != nil {
			return err
		}
	}
	return nil
}

// reference resolves a name against materials first, then arrays. The two
// namespaces share identifiers, and a material definition shadows an array
// of the same name; the design session forbids defining both.
func (e *expander) reference(name string, thicknessNm float64, out *[]domain.Layer) error {
	if m, ok := e.defs.Materials[name]; ok {
		return e.appendLayer(m, thicknessNm, out)
	}
	if _, ok := e.defs.Arrays[name]; ok {
		return e.array(name, out)
	}
	if e.probe {
		return nil
	}
	return domain.UnknownReferenceError{Name: name}
}

func (e *expander) array(name string, out *[]domain.Layer) error {
	if e.inProgress[name] {
		cycle := append(append([]string{}, e.path...), name)
		return domain.CircularReferenceError{Cycle: cycle}
	}
	arr := e.defs.Arrays[name]
	e.inProgress[name] = true
	e.path = append(e.path, name)
	defer func() {
		delete(e.inProgress, name)
		e.path = e.path[:len(e.path)-1]
	}()
	for _, el := range arr.Elements {
		if m, ok := e.defs.Materials[el.Ref]; ok {
			if err := e.appendLayer(m, el.ThicknessNm, out); err != nil {
				return err
			}
			continue
		}
		if _, ok := e.defs.Arrays[el.Ref]; ok {
			if err := e.array(el.Ref, out); err != nil {
				return err
			}
			continue
		}
		if e.probe {
			continue
		}
		return domain.UnknownReferenceError{Name: el.Ref}
	}
	return nil
}

func (e *expander) appendLayer(m domain.Material, thicknessNm float64, out *[]domain.Layer) error {
	if thicknessNm < 0 || (thicknessNm == 0 && !m.Defect) {
		return domain.ValidationError{
			Field:   "thickness",
			Message: fmt.Sprintf("material %s: thickness must be positive (zero is reserved for defect markers)", m.Name),
		}
	}
	if len(*out) >= domain.MaxLayers {
		return domain.LimitError{What: "layers", Limit: domain.MaxLayers, Actual: len(*out) + 1}
	}
	*out = append(*out, domain.Layer{Material: m.Name, ThicknessNm: thicknessNm})
	return nil
}
