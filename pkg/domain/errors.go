package domain

import (
	"fmt"
	"strings"
)

// UnknownReferenceError reports a structure term naming neither a defined
// material nor a defined array.
type UnknownReferenceError struct {
	Name string
}

func (e UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown material or array reference %q", e.Name)
}

// SyntaxError reports a malformed structure expression. Position is the byte
// offset of the offending token within the expression.
type SyntaxError struct {
	Position int
	Message  string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Position, e.Message)
}

// CircularReferenceError reports an array that expands to itself, directly or
// transitively. Cycle holds the reference path ending at the repeated name.
type CircularReferenceError struct {
	Cycle []string
}

func (e CircularReferenceError) Error() string {
	return fmt.Sprintf("circular array reference: %s", strings.Join(e.Cycle, " -> "))
}

// OutOfRangeError reports an index lookup outside a material's tabulated or
// formula validity range while extrapolation is disabled.
type OutOfRangeError struct {
	Material     string
	WavelengthNm float64
	MinNm        float64
	MaxNm        float64
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("material %s: wavelength %gnm outside range [%gnm, %gnm]",
		e.Material, e.WavelengthNm, e.MinNm, e.MaxNm)
}

// MaterialStateError reports a material stuck in an unresolved error state,
// for example a catalog-sourced definition whose lookup failed. It surfaces
// wherever the material is used, distinguishable from a zero-loss material.
type MaterialStateError struct {
	Material string
	Reason   string
}

func (e MaterialStateError) Error() string {
	return fmt.Sprintf("material %s is unresolved: %s", e.Material, e.Reason)
}

// LimitError reports a session or expansion bound being exceeded.
type LimitError struct {
	What   string
	Limit  int
	Actual int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.What, e.Actual, e.Limit)
}

// ValidationError reports an invalid parameter or definition field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NumericalError reports a non-finite intermediate or final value during
// matrix evaluation, typically overflow from extreme absorption-thickness
// products. Results are never silently Inf or NaN.
type NumericalError struct {
	WavelengthNm float64
	Reason       string
}

func (e NumericalError) Error() string {
	return fmt.Sprintf("numerical failure at %gnm: %s", e.WavelengthNm, e.Reason)
}

// NotFoundError reports a missing named entity (material, array, project,
// sweep job or catalog entry).
type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}
