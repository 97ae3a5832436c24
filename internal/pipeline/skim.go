package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
	"github.com/ozonelab/o3skim/internal/observability"
)

// GroupBy selects how skim output is partitioned along the time axis.
type GroupBy string

const (
	GroupByNone   GroupBy = "none"
	GroupByYear   GroupBy = "year"
	GroupByDecade GroupBy = "decade"
)

// ParseGroupBy validates a groupby flag value. An empty string means none.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case "", GroupByNone:
		return GroupByNone, nil
	case GroupByYear:
		return GroupByYear, nil
	case GroupByDecade:
		return GroupByDecade, nil
	default:
		return "", fmt.Errorf("unknown groupby %q (want none, year or decade)", s)
	}
}

// PartitionWriter stores one standardized variable slice as a partition file.
type PartitionWriter interface {
	Write(path string, v *dataset.Variable, global map[string]string) error
}

// Notifier publishes a skim report after a model's output is written. A nil
// Notifier disables reporting.
type Notifier interface {
	NotifySkim(ctx context.Context, report *SkimReport) error
}

// SidecarName is the metadata sidecar written next to partition files.
const SidecarName = "metadata.yaml"

// WriteFailure records one contained partition write failure.
type WriteFailure struct {
	Variable string
	File     string
	Err      error
}

// SkimReport summarizes one model skim.
type SkimReport struct {
	Source    string         `json:"source"`
	Model     string         `json:"model"`
	GroupBy   string         `json:"groupby"`
	OutputDir string         `json:"output_dir"`
	Files     []string       `json:"files"`
	Failures  []WriteFailure `json:"-"`
	Failed    []string       `json:"failed,omitempty"`
	SkimmedAt time.Time      `json:"skimmed_at"`
	Duration  float64        `json:"duration_seconds"`
}

// Engine partitions standardized models along time and writes the output
// files plus the metadata sidecar.
type Engine struct {
	writer   PartitionWriter
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
	ready    atomic.Bool
}

// NewEngine creates a skim engine. Pass a nil notifier to disable skim
// reports; workers bounds parallel model skims within a source.
func NewEngine(writer PartitionWriter, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		writer:   writer,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
	}
}

// CheckReadiness returns nil once at least one model has been skimmed.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return fmt.Errorf("no model skimmed yet")
	}
	return nil
}

// SkimSource skims every loaded model of the source into
// <outputRoot>/<source>_<model> directories on independent workers. The
// returned error is the first output-directory-level failure; per-partition
// write failures are contained in the reports.
func (e *Engine) SkimSource(ctx context.Context, source *domain.Source, outputRoot string, groupby GroupBy) ([]*SkimReport, error) {
	e.metrics.SkimRunning.Set(1)
	defer e.metrics.SkimRunning.Set(0)

	var mu sync.Mutex
	var reports []*SkimReport
	var firstErr error

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, name := range source.Models() {
		g.Go(func() error {
			model, err := source.Model(name)
			if err != nil {
				return nil // excluded between listing and lookup: nothing to skim
			}
			dir := filepath.Join(outputRoot, source.Name()+"_"+name)
			report, err := e.SkimModel(ctx, source, model, dir, groupby)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("skim %s_%s: %w", source.Name(), name, err)
				}
				return nil // isolate: siblings keep running
			}
			reports = append(reports, report)
			return nil
		})
	}
	_ = g.Wait()
	return reports, firstErr
}

// SkimModel partitions each of the model's variables independently and writes
// one file per (variable, partition), plus the metadata sidecar when the
// merged metadata is non-empty. Partition write failures are contained in the
// report; only directory-level failures are returned.
func (e *Engine) SkimModel(ctx context.Context, source *domain.Source, model *domain.Model, dir string, groupby GroupBy) (*SkimReport, error) {
	start := time.Now()
	e.logger.Info("skimming model", "source", source.Name(), "model", model.Name, "groupby", string(groupby), "dir", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	metadata, err := e.mergedMetadata(source, model)
	if err != nil {
		return nil, err
	}
	global := scalarAttrs(metadata)

	report := &SkimReport{
		Source:    source.Name(),
		Model:     model.Name,
		GroupBy:   string(groupby),
		OutputDir: dir,
	}

	for _, v := range model.Variables() {
		e.skimVariable(ctx, v, model.VarMeta[v.Name], dir, groupby, global, report)
	}

	if len(metadata) > 0 {
		if err := e.writeSidecar(dir, metadata, groupby); err != nil {
			return nil, err
		}
	}

	report.SkimmedAt = domain.Now()
	for _, f := range report.Failures {
		report.Failed = append(report.Failed, f.File)
	}
	report.Duration = time.Since(start).Seconds()
	e.metrics.SkimDuration.Observe(report.Duration)
	e.ready.Store(true)

	if e.notifier != nil {
		if err := e.notifier.NotifySkim(ctx, report); err != nil {
			e.logger.Warn("skim report notification failed", "source", report.Source, "model", report.Model, "error", err)
		}
	}
	return report, nil
}

// skimVariable writes every partition of one variable, containing write
// failures into the report.
func (e *Engine) skimVariable(ctx context.Context, v *dataset.Variable, varMeta domain.Metadata, dir string, groupby GroupBy, global map[string]string, report *SkimReport) {
	out := v
	if len(varMeta) > 0 {
		out = v.Clone()
		attachMetadata(out, varMeta)
	}

	for _, p := range partitions(out, groupby) {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, p.file)
		if err := e.writer.Write(path, p.slice, global); err != nil {
			e.logger.Error("partition write failed", "variable", v.Name, "file", p.file, "error", err)
			e.metrics.WriteFailures.Inc()
			report.Failures = append(report.Failures, WriteFailure{Variable: v.Name, File: p.file, Err: err})
			continue
		}
		e.metrics.PartitionsWritten.Inc()
		report.Files = append(report.Files, p.file)
	}
}

type partition struct {
	file  string
	slice *dataset.Variable
}

// partitions derives the labeled time slices of a variable. File names are
// deterministic: <var>.nc, <var>_<year>-<year+1>.nc or
// <var>_<decade>-<decade+10>.nc.
func partitions(v *dataset.Variable, groupby GroupBy) []partition {
	switch groupby {
	case GroupByYear:
		return labeled(v, v.Time.GroupByYear(), 1)
	case GroupByDecade:
		return labeled(v, v.Time.GroupByDecade(), 10)
	default:
		return []partition{{file: v.Name + ".nc", slice: v}}
	}
}

func labeled(v *dataset.Variable, groups []dataset.TimeGroup, span int) []partition {
	out := make([]partition, 0, len(groups))
	for _, g := range groups {
		slice, err := v.SelectRecords(g.Indices)
		if err != nil {
			// Indices come from the variable's own time axis; a mismatch is
			// a programming error, not provider data.
			panic(fmt.Sprintf("partition %s %d: %v", v.Name, g.Label, err))
		}
		out = append(out, partition{
			file:  fmt.Sprintf("%s_%d-%d.nc", v.Name, g.Label, g.Label+span),
			slice: slice,
		})
	}
	return out
}

// mergedMetadata merges source, model and per-variable metadata, each
// subsequent layer taking precedence at leaf conflicts.
func (e *Engine) mergedMetadata(source *domain.Source, model *domain.Model) (domain.Metadata, error) {
	layers := []domain.Metadata{source.Metadata(), model.Metadata}
	for _, name := range []string{domain.VarTCO3, domain.VarVMRO3} {
		if md, ok := model.VarMeta[name]; ok {
			layers = append(layers, md)
		}
	}
	md, err := domain.MergeLayers(layers...)
	if err != nil {
		return nil, fmt.Errorf("merge metadata: %w", err)
	}
	return md, nil
}

// attachMetadata copies the scalar entries of a per-variable metadata block
// into the output variable's attributes.
func attachMetadata(v *dataset.Variable, md domain.Metadata) {
	for k, val := range scalarAttrs(md) {
		v.Attrs[k] = val
	}
}

// scalarAttrs flattens the scalar top-level entries of metadata into string
// attributes; nested mappings stay sidecar-only.
func scalarAttrs(md domain.Metadata) map[string]string {
	out := map[string]string{}
	for k, val := range md {
		switch val.(type) {
		case map[string]any, domain.Metadata:
			continue
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
