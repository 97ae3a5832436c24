package netcdf

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/ozonelab/o3skim/internal/dataset"
)

// Time encoding of output files. A fixed epoch keeps partition files of one
// run directly comparable.
const (
	timeUnits    = "days since 1850-01-01"
	timeCalendar = "proleptic_gregorian"
	boundsVar    = "time_bnds"
)

var timeEpoch = time.Date(1850, time.January, 1, 0, 0, 0, 0, time.UTC)

// Writer writes partition files. It implements the pipeline's
// PartitionWriter.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a partition file writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write stores one standardized variable slice into path. Write semantics
// are create-then-append: a missing destination is first created empty, then
// written, so re-running a skim over an existing partition replaces its
// logical content. Concurrent overlapping re-runs are not coordinated.
func (w *Writer) Write(path string, v *dataset.Variable, global map[string]string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("open writer %s: %w", path, err)
	}

	if err := w.addVariables(cw, v, global); err != nil {
		// Best effort: leave a closed, possibly partial file behind rather
		// than a dangling handle.
		_ = cw.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.logger.Debug("partition written", "path", path, "variable", v.Name, "records", v.DimSize(dataset.DimTime))
	return nil
}

func (w *Writer) addVariables(cw *cdf.CDFWriter, v *dataset.Variable, global map[string]string) error {
	if v.Time == nil || len(v.Dims) == 0 || v.Dims[0] != dataset.DimTime {
		return fmt.Errorf("variable %q: time is not the leading dimension", v.Name)
	}

	// Coordinates first, in dimension order.
	for _, dim := range v.Dims[1:] {
		c, ok := v.Coords[dim]
		if !ok {
			continue
		}
		attrs, err := orderedAttrs(c.Attrs)
		if err != nil {
			return err
		}
		if err := cw.AddVar(dim, api.Variable{
			Values:     append([]float64(nil), c.Values...),
			Dimensions: []string{dim},
			Attributes: attrs,
		}); err != nil {
			return fmt.Errorf("coordinate %q: %w", dim, err)
		}
	}

	if err := w.addTime(cw, v.Time); err != nil {
		return err
	}

	attrs, err := orderedAttrs(v.Attrs)
	if err != nil {
		return err
	}
	if err := cw.AddVar(v.Name, api.Variable{
		Values:     nest(v.Data, v.Shape, v.Float32),
		Dimensions: append([]string(nil), v.Dims...),
		Attributes: attrs,
	}); err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}

	if len(global) > 0 {
		ga, err := orderedAttrs(global)
		if err != nil {
			return err
		}
		if err := cw.AddGlobalAttrs(ga); err != nil {
			return fmt.Errorf("global attributes: %w", err)
		}
	}
	return nil
}

func (w *Writer) addTime(cw *cdf.CDFWriter, tc *dataset.TimeCoordinate) error {
	attrs := map[string]string{}
	for k, val := range tc.Attrs {
		attrs[k] = val
	}
	attrs["units"] = timeUnits
	attrs["calendar"] = timeCalendar
	if tc.Bounds != nil {
		attrs["bounds"] = boundsVar
	} else {
		delete(attrs, "bounds")
	}

	am, err := orderedAttrs(attrs)
	if err != nil {
		return err
	}
	if err := cw.AddVar(dataset.DimTime, api.Variable{
		Values:     encodeTimes(tc.Values),
		Dimensions: []string{dataset.DimTime},
		Attributes: am,
	}); err != nil {
		return fmt.Errorf("time coordinate: %w", err)
	}

	if tc.Bounds == nil {
		return nil
	}
	bounds := make([][]float64, len(tc.Bounds))
	for i, b := range tc.Bounds {
		bounds[i] = []float64{encodeTime(b[0]), encodeTime(b[1])}
	}
	if err := cw.AddVar(boundsVar, api.Variable{
		Values:     bounds,
		Dimensions: []string{dataset.DimTime, "bnds"},
		Attributes: nil,
	}); err != nil {
		return fmt.Errorf("time bounds: %w", err)
	}
	return nil
}

func encodeTimes(ts []time.Time) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = encodeTime(t)
	}
	return out
}

func encodeTime(t time.Time) float64 {
	return t.Sub(timeEpoch).Hours() / 24
}

// orderedAttrs builds the library's ordered attribute map with keys sorted
// for deterministic output.
func orderedAttrs(attrs map[string]string) (api.AttributeMap, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(attrs))
	values := make(map[string]any, len(attrs))
	for k, v := range attrs {
		keys = append(keys, k)
		values[k] = v
	}
	sort.Strings(keys)
	am, err := util.NewOrderedMap(keys, values)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	return am, nil
}
