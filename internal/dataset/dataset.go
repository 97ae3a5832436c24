// Package dataset provides a small labeled-array layer over raw gridded
// NetCDF values: named dimensions, coordinate variables, attribute maps and
// the reduction/selection operations the skimming pipeline needs.
//
// It is deliberately minimal. Values are held as flat float64 slices in
// row-major order; the time axis is kept separately as a materialized
// []time.Time so grouping and partitioning never operate on raw numeric
// offsets.
package dataset

import (
	"fmt"
	"time"
)

// Canonical dimension names used throughout the pipeline.
const (
	DimTime = "time"
	DimLat  = "lat"
	DimLon  = "lon"
	DimPlev = "plev"
)

// Coordinate is a one-dimensional labeled axis (latitude, pressure level...).
type Coordinate struct {
	Name   string
	Values []float64
	Attrs  map[string]string
}

// Clone returns a deep copy of the coordinate.
func (c Coordinate) Clone() Coordinate {
	out := Coordinate{Name: c.Name, Values: append([]float64(nil), c.Values...)}
	out.Attrs = cloneAttrs(c.Attrs)
	return out
}

// TimeCoordinate is a fully materialized time axis. Bounds, when present,
// hold the cell interval for each record.
type TimeCoordinate struct {
	Name      string
	Values    []time.Time
	Bounds    [][2]time.Time
	Attrs     map[string]string
	Calendar  string
	Converted bool // source calendar was non-standard and was converted
}

// Clone returns a deep copy of the time coordinate.
func (tc *TimeCoordinate) Clone() *TimeCoordinate {
	if tc == nil {
		return nil
	}
	out := &TimeCoordinate{
		Name:      tc.Name,
		Values:    append([]time.Time(nil), tc.Values...),
		Calendar:  tc.Calendar,
		Converted: tc.Converted,
	}
	if tc.Bounds != nil {
		out.Bounds = append([][2]time.Time(nil), tc.Bounds...)
	}
	out.Attrs = cloneAttrs(tc.Attrs)
	return out
}

// Variable is a labeled n-dimensional array. Data is row-major over Dims;
// Coords holds the non-time coordinate per dimension name.
type Variable struct {
	Name   string
	Dims   []string
	Shape  []int
	Data   []float64
	Attrs  map[string]string
	Coords map[string]Coordinate
	Time   *TimeCoordinate

	// Float32 marks the variable for single-precision storage on write.
	Float32 bool
}

// NewVariable builds a variable after validating that the data length matches
// the dimension shape.
func NewVariable(name string, dims []string, shape []int, data []float64) (*Variable, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("variable %q: %d dims but %d shape entries", name, len(dims), len(shape))
	}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("variable %q: negative dimension size %d", name, s)
		}
		n *= s
	}
	if n != len(data) {
		return nil, fmt.Errorf("variable %q: shape wants %d values, got %d", name, n, len(data))
	}
	return &Variable{
		Name:   name,
		Dims:   append([]string(nil), dims...),
		Shape:  append([]int(nil), shape...),
		Data:   data,
		Attrs:  map[string]string{},
		Coords: map[string]Coordinate{},
	}, nil
}

// HasDim reports whether the variable carries the named dimension.
func (v *Variable) HasDim(dim string) bool {
	return v.dimIndex(dim) >= 0
}

// DimSize returns the size of the named dimension, or -1 if absent.
func (v *Variable) DimSize(dim string) int {
	i := v.dimIndex(dim)
	if i < 0 {
		return -1
	}
	return v.Shape[i]
}

func (v *Variable) dimIndex(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// strides returns the row-major stride per dimension.
func (v *Variable) strides() []int {
	st := make([]int, len(v.Shape))
	acc := 1
	for i := len(v.Shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= v.Shape[i]
	}
	return st
}

// Clone returns a deep copy of the variable.
func (v *Variable) Clone() *Variable {
	out := &Variable{
		Name:    v.Name,
		Dims:    append([]string(nil), v.Dims...),
		Shape:   append([]int(nil), v.Shape...),
		Data:    append([]float64(nil), v.Data...),
		Attrs:   cloneAttrs(v.Attrs),
		Coords:  map[string]Coordinate{},
		Time:    v.Time.Clone(),
		Float32: v.Float32,
	}
	for k, c := range v.Coords {
		out.Coords[k] = c.Clone()
	}
	return out
}

func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, val := range attrs {
		out[k] = val
	}
	return out
}
