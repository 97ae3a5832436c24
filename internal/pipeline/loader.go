// Package pipeline orchestrates the two phases of a skim run: building
// standardized Sources from raw provider collections, and partitioning the
// standardized models into output files.
//
// Failure containment lives here. Every variable load and every model build
// runs behind its own boundary: errors are logged, counted and collected into
// reports, and never abort sibling work.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
	"github.com/ozonelab/o3skim/internal/observability"
)

// CollectionReader opens one raw provider collection, concatenated along the
// time axis in path order.
type CollectionReader interface {
	OpenCollection(ctx context.Context, spec domain.VariableSpec) (*domain.RawCollection, error)
}

// Loader builds Sources from validated source specs.
type Loader struct {
	reader  CollectionReader
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
	timeout time.Duration
}

// NewLoader creates a Loader. workers bounds parallel model builds; timeout
// caps a single model build.
func NewLoader(reader CollectionReader, logger *slog.Logger, metrics *observability.Metrics, workers int, timeout time.Duration) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		reader:  reader,
		logger:  logger,
		metrics: metrics,
		workers: workers,
		timeout: timeout,
	}
}

// VariableFailure records one contained standardization failure.
type VariableFailure struct {
	Model    string
	Variable string
	Err      error
}

// LoadReport summarizes one source build: which models loaded and every
// contained failure.
type LoadReport struct {
	Source   string
	Loaded   []string
	Failures []VariableFailure
}

// BuildSource builds every model of the source spec on independent workers. A
// failing model build is isolated: it is reported and excluded from the
// Source without cancelling sibling builds. The returned report lists all
// contained failures; BuildSource itself never fails.
func (l *Loader) BuildSource(ctx context.Context, spec domain.SourceSpec) (*domain.Source, *LoadReport) {
	l.logger.Info("loading source", "source", spec.Name, "models", len(spec.ModelNames))
	report := &LoadReport{Source: spec.Name}

	var mu sync.Mutex
	models := make(map[string]*domain.Model, len(spec.ModelNames))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for _, name := range spec.ModelNames {
		g.Go(func() error {
			start := time.Now()
			modelCtx := ctx
			if l.timeout > 0 {
				var cancel context.CancelFunc
				modelCtx, cancel = context.WithTimeout(ctx, l.timeout)
				defer cancel()
			}

			model, failures := l.buildModel(modelCtx, spec.Name, name, spec.Models[name])
			l.metrics.ModelLoadDuration.Observe(time.Since(start).Seconds())

			mu.Lock()
			defer mu.Unlock()
			report.Failures = append(report.Failures, failures...)
			if model.Empty() {
				if len(failures) > 0 {
					l.metrics.ModelLoadFailures.Inc()
				}
				return nil
			}
			models[name] = model
			l.metrics.ModelsLoaded.Inc()
			return nil
		})
	}
	_ = g.Wait() // workers contain their own errors

	source := domain.NewSource(spec.Name, spec.Metadata, models, spec.ModelNames)
	report.Loaded = source.Models()
	return source, report
}

// buildModel loads each configured variable behind its own containment
// boundary, so a tco3_zm failure does not prevent a vmro3_zm success within
// the same model.
func (l *Loader) buildModel(ctx context.Context, source, name string, spec domain.ModelSpec) (*domain.Model, []VariableFailure) {
	l.logger.Info("loading model", "source", source, "model", name)
	model := &domain.Model{
		Name:     name,
		Metadata: spec.Metadata,
		VarMeta:  map[string]domain.Metadata{},
	}

	var failures []VariableFailure
	for _, entry := range []struct {
		canonical string
		spec      *domain.VariableSpec
	}{
		{domain.VarTCO3, spec.TCO3},
		{domain.VarVMRO3, spec.VMRO3},
	} {
		if entry.spec == nil {
			continue
		}
		v, err := l.loadVariable(ctx, *entry.spec, entry.canonical)
		if err != nil {
			loadErr := &domain.ModelLoadError{Model: name, Variable: entry.canonical, Err: err}
			l.logger.Warn("variable load failed, continuing without it",
				"source", source, "model", name, "variable", entry.canonical, "error", loadErr)
			l.metrics.VariablesStandardized.WithLabelValues(entry.canonical, "error").Inc()
			failures = append(failures, VariableFailure{Model: name, Variable: entry.canonical, Err: loadErr})
			continue
		}
		l.metrics.VariablesStandardized.WithLabelValues(entry.canonical, "success").Inc()
		if entry.canonical == domain.VarTCO3 {
			model.TCO3 = v
		} else {
			model.VMRO3 = v
		}
		if len(entry.spec.Metadata) > 0 {
			model.VarMeta[entry.canonical] = entry.spec.Metadata.Clone()
		}
	}
	return model, failures
}

func (l *Loader) loadVariable(ctx context.Context, spec domain.VariableSpec, canonical string) (*dataset.Variable, error) {
	raw, err := l.reader.OpenCollection(ctx, spec)
	if err != nil {
		return nil, err
	}
	return domain.Standardize(raw, spec, canonical, l.logger)
}
