package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"opticore/internal/blob"
	"opticore/internal/telemetry"
	"opticore/pkg/domain"
)

// Exporter encodes results and stores the artifacts next to their sweep job.
type Exporter struct {
	store   blob.Store
	logger  telemetry.Logger
	metrics telemetry.MetricsRecorder
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the exporter's logger.
func WithLogger(l telemetry.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithMetrics sets the exporter's metrics recorder.
func WithMetrics(m telemetry.MetricsRecorder) Option {
	return func(e *Exporter) { e.metrics = m }
}

// NewExporter wires an exporter to the given artifact store.
func NewExporter(store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{store: store, logger: telemetry.NopLogger{}, metrics: telemetry.NopMetrics{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export materializes result in the requested format and stores it under
// spectra/<jobID>/. The returned Info carries a presigned URL when the driver
// supports signing. Re-exporting the same job and format fails because
// artifact keys are create-only.
func (e *Exporter) Export(ctx context.Context, jobID string, result domain.SimulationResult, format Format) (blob.Info, error) {
	artifact, err := Materialize(result, format)
	if err != nil {
		e.metrics.ObserveExport(string(format), false)
		return blob.Info{}, err
	}
	key := fmt.Sprintf("spectra/%s/%s", jobID, artifact.Filename)
	info, err := e.store.Put(ctx, key, bytes.NewReader(artifact.Data), blob.PutOptions{
		ContentType: artifact.ContentType,
		Metadata:    map[string]string{"job": jobID, "format": string(format)},
	})
	if err != nil {
		e.metrics.ObserveExport(string(format), false)
		return blob.Info{}, fmt.Errorf("store artifact: %w", err)
	}
	if url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{}); err == nil {
		info.URL = url
	} else if !errors.Is(err, blob.ErrUnsupported) {
		e.logger.Warn("presign failed", "key", key, "error", err)
	}
	e.metrics.ObserveExport(string(format), true)
	e.logger.Info("artifact stored", "key", key, "bytes", info.Size)
	return info, nil
}

// List returns the stored artifacts of a sweep job.
func (e *Exporter) List(ctx context.Context, jobID string) ([]blob.Info, error) {
	return e.store.List(ctx, fmt.Sprintf("spectra/%s/", jobID))
}

// Open streams a stored artifact.
func (e *Exporter) Open(ctx context.Context, jobID, filename string) (blob.Info, []byte, error) {
	key := fmt.Sprintf("spectra/%s/%s", jobID, filename)
	info, rc, err := e.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, domain.NotFoundError{Kind: "artifact", Name: key}
	}
	if err != nil {
		return blob.Info{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return blob.Info{}, nil, err
	}
	return info, data, nil
}
