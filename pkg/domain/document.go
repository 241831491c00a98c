package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProjectSchemaVersion is the document schema written by this release.
// Loading tolerates older (or unversioned) documents; newer majors are
// rejected rather than misread.
const ProjectSchemaVersion = 1

// ProjectDocument captures a complete design session: every definition and
// parameter needed to reproduce a SimulationResult on reload.
type ProjectDocument struct {
	SchemaVersion int               `json:"schema_version"`
	Name          string            `json:"name"`
	Materials     []Material        `json:"materials"`
	Arrays        []Array           `json:"arrays"`
	Expression    string            `json:"expression"`
	Incidence     string            `json:"incidence"`
	Substrate     string            `json:"substrate"`
	Request       SimulationRequest `json:"request"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Normalize fills defaults on a freshly decoded document. A zero schema
// version marks a document written before versioning and reads as version 1.
func (d *ProjectDocument) Normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = 1
	}
}

// Validate checks the document can be applied to a session.
func (d ProjectDocument) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if d.SchemaVersion > ProjectSchemaVersion {
		return ValidationError{
			Field:   "schema_version",
			Message: fmt.Sprintf("document version %d newer than supported %d", d.SchemaVersion, ProjectSchemaVersion),
		}
	}
	if len(d.Materials) > MaxMaterials {
		return LimitError{What: "materials", Limit: MaxMaterials, Actual: len(d.Materials)}
	}
	if len(d.Arrays) > MaxArrays {
		return LimitError{What: "arrays", Limit: MaxArrays, Actual: len(d.Arrays)}
	}
	for _, m := range d.Materials {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	for _, a := range d.Arrays {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ProjectStore is the persistence abstraction for project documents.
type ProjectStore interface {
	SaveProject(ctx context.Context, doc ProjectDocument) (ProjectDocument, error)
	LoadProject(ctx context.Context, name string) (ProjectDocument, error)
	ListProjects(ctx context.Context) ([]ProjectDocument, error)
	DeleteProject(ctx context.Context, name string) error
	Close() error
}
