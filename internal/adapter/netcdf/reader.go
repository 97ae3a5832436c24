// Package netcdf adapts the NetCDF library to the pipeline: multi-file
// collection reads with time-ordered concatenation, and partition file
// writes with create-then-append semantics.
package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
)

// Reader opens raw provider collections. It implements the pipeline's
// CollectionReader.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a collection reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// OpenCollection expands the variable spec's path expressions, reads the raw
// variable from every file and concatenates the fragments along the time
// axis. Path expression order is authoritative; files matched by one glob
// are expanded in lexical order. Matching no files at all is an error.
func (r *Reader) OpenCollection(ctx context.Context, spec domain.VariableSpec) (*domain.RawCollection, error) {
	files, err := expandPaths(spec.Paths)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("opening collection", "variable", spec.Name, "files", len(files))

	timeName, ok := spec.Coordinates[dataset.DimTime]
	if !ok {
		return nil, fmt.Errorf("%w: no raw name configured for time", domain.ErrCoordinateNotFound)
	}

	frags := make([]*dataset.Variable, 0, len(files))
	var global map[string]string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frag, fileGlobal, err := r.readFile(file, spec.Name, timeName)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		if global == nil {
			global = fileGlobal
		}
		frags = append(frags, frag)
	}

	merged, err := dataset.Concat(frags)
	if err != nil {
		return nil, err
	}
	return &domain.RawCollection{Variable: merged, GlobalAttrs: global}, nil
}

// expandPaths resolves each path expression with filepath.Glob, preserving
// expression order. No deduplication across expressions.
func expandPaths(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad path expression %q: %w", p, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match path expressions %v", patterns)
	}
	return files, nil
}

// readFile reads one file's fragment: the raw variable with its coordinates
// and a materialized time axis, transposed so time leads.
func (r *Reader) readFile(path, varName, timeName string) (*dataset.Variable, map[string]string, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer g.Close()

	raw, err := g.GetVariable(varName)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", varName, err)
	}

	shape, data, err := flatten(raw.Values)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", varName, err)
	}
	unpack(data, raw.Attributes)

	v, err := dataset.NewVariable(varName, raw.Dimensions, shape, data)
	if err != nil {
		return nil, nil, err
	}
	v.Attrs = attrsToMap(raw.Attributes)

	hasTime := false
	for _, dim := range raw.Dimensions {
		if dim == timeName {
			hasTime = true
			continue
		}
		coord, err := readCoord(g, dim)
		if err != nil {
			return nil, nil, err
		}
		if coord != nil {
			v.Coords[dim] = *coord
		}
	}
	if !hasTime {
		return nil, nil, fmt.Errorf("%w: %q (time)", domain.ErrCoordinateNotFound, timeName)
	}

	tc, err := readTime(g, timeName)
	if err != nil {
		return nil, nil, err
	}
	v.Time = tc

	// Concatenation appends along the leading dimension.
	if v.Dims[0] != timeName {
		order := append([]string{timeName}, withoutDim(v.Dims, timeName)...)
		v, err = v.Transpose(order...)
		if err != nil {
			return nil, nil, err
		}
	}
	return v, attrsToMap(g.Attributes()), nil
}

func withoutDim(dims []string, drop string) []string {
	out := make([]string, 0, len(dims)-1)
	for _, d := range dims {
		if d != drop {
			out = append(out, d)
		}
	}
	return out
}

// readCoord reads the coordinate variable named after a dimension. Dimensions
// without a coordinate variable are legal and yield nil.
func readCoord(g api.Group, dim string) (*dataset.Coordinate, error) {
	if !hasVariable(g, dim) {
		return nil, nil
	}
	raw, err := g.GetVariable(dim)
	if err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", dim, err)
	}
	shape, data, err := flatten(raw.Values)
	if err != nil || len(shape) != 1 {
		return nil, fmt.Errorf("coordinate %q is not one-dimensional", dim)
	}
	return &dataset.Coordinate{Name: dim, Values: data, Attrs: attrsToMap(raw.Attributes)}, nil
}

// readTime materializes the time coordinate and, when referenced through a
// bounds attribute, its bounds variable. Non-standard calendars are converted
// here; the standardization layer logs the conversion.
func readTime(g api.Group, timeName string) (*dataset.TimeCoordinate, error) {
	raw, err := g.GetVariable(timeName)
	if err != nil {
		return nil, fmt.Errorf("time coordinate %q: %w", timeName, err)
	}
	shape, offsets, err := flatten(raw.Values)
	if err != nil || len(shape) != 1 {
		return nil, fmt.Errorf("time coordinate %q is not one-dimensional", timeName)
	}

	attrs := attrsToMap(raw.Attributes)
	units := attrs["units"]
	calendar := attrs["calendar"]

	values, converted, err := dataset.DecodeTime(offsets, units, calendar)
	if err != nil {
		return nil, fmt.Errorf("time coordinate %q: %w", timeName, err)
	}
	tc := &dataset.TimeCoordinate{
		Name:      timeName,
		Values:    values,
		Attrs:     attrs,
		Calendar:  calendar,
		Converted: converted,
	}

	if boundsName, ok := attrs["bounds"]; ok && hasVariable(g, boundsName) {
		bounds, err := readTimeBounds(g, boundsName, units, calendar, len(values))
		if err != nil {
			return nil, err
		}
		tc.Bounds = bounds
	}
	return tc, nil
}

func readTimeBounds(g api.Group, name, units, calendar string, n int) ([][2]time.Time, error) {
	raw, err := g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("time bounds %q: %w", name, err)
	}
	shape, data, err := flatten(raw.Values)
	if err != nil || len(shape) != 2 || shape[0] != n || shape[1] != 2 {
		return nil, fmt.Errorf("time bounds %q: expected shape [%d 2]", name, n)
	}
	decoded, _, err := dataset.DecodeTime(data, units, calendar)
	if err != nil {
		return nil, fmt.Errorf("time bounds %q: %w", name, err)
	}
	out := make([][2]time.Time, n)
	for i := range out {
		out[i] = [2]time.Time{decoded[2*i], decoded[2*i+1]}
	}
	return out, nil
}

func hasVariable(g api.Group, name string) bool {
	for _, v := range g.ListVariables() {
		if v == name {
			return true
		}
	}
	return false
}

// unpack applies CF packing attributes in place: scale_factor, add_offset and
// _FillValue (fill becomes NaN, checked against the packed value).
func unpack(data []float64, am api.AttributeMap) {
	fill, hasFill := attrFloat(am, "_FillValue")
	scale, hasScale := attrFloat(am, "scale_factor")
	offset, hasOffset := attrFloat(am, "add_offset")
	if !hasFill && !hasScale && !hasOffset {
		return
	}
	for i, v := range data {
		if hasFill && v == fill {
			data[i] = math.NaN()
			continue
		}
		if hasScale {
			v *= scale
		}
		if hasOffset {
			v += offset
		}
		data[i] = v
	}
}
