package domain

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozonelab/o3skim/internal/dataset"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawTimeAxis(name string, n int) *dataset.TimeCoordinate {
	tc := &dataset.TimeCoordinate{Name: name, Calendar: "standard", Attrs: map[string]string{}}
	for i := 0; i < n; i++ {
		tc.Values = append(tc.Values, time.Date(2000, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC))
	}
	return tc
}

func rawTCO3(t *testing.T) *RawCollection {
	t.Helper()
	// t=2, latitude=2, longitude=3 row-major.
	v, err := dataset.NewVariable("toz", []string{"t", "latitude", "longitude"}, []int{2, 2, 3}, []float64{
		1, 2, 3, 4, 5, 6,
		10, 20, 30, 40, 50, 60,
	})
	require.NoError(t, err)
	v.Attrs = map[string]string{
		"standard_name": "atmosphere_mole_content_of_ozone",
		"units":         "DU",
		"history":       "model run 42",
	}
	v.Coords["latitude"] = dataset.Coordinate{
		Name:   "latitude",
		Values: []float64{-45, 45},
		Attrs:  map[string]string{"units": "degrees_north", "axis": "Y"},
	}
	v.Coords["longitude"] = dataset.Coordinate{Name: "longitude", Values: []float64{-180, 0, 180}}
	v.Time = rawTimeAxis("t", 2)
	return &RawCollection{
		Variable:    v,
		GlobalAttrs: map[string]string{"institution": "acme", "Conventions": "CF-1.8"},
	}
}

func tco3Spec() VariableSpec {
	return VariableSpec{
		Name: "toz",
		Coordinates: map[string]string{
			dataset.DimTime: "t",
			dataset.DimLat:  "latitude",
			dataset.DimLon:  "longitude",
		},
	}
}

func TestStandardizeTCO3(t *testing.T) {
	got, err := Standardize(rawTCO3(t), tco3Spec(), VarTCO3, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, VarTCO3, got.Name)
	assert.Equal(t, []string{dataset.DimTime, dataset.DimLat}, got.Dims)
	assert.Equal(t, []int{2, 2}, got.Shape)
	assert.Equal(t, []float64{2, 5, 20, 50}, got.Data, "zonal mean over longitude")

	// Attribute whitelist plus the recorded reduction.
	assert.Equal(t, "DU", got.Attrs["units"])
	assert.Equal(t, "lon: mean", got.Attrs["cell_methods"])
	assert.NotContains(t, got.Attrs, "history")

	// Coordinates are renamed, longitude is gone.
	lat, ok := got.Coords[dataset.DimLat]
	require.True(t, ok)
	assert.Equal(t, dataset.DimLat, lat.Name)
	assert.Equal(t, []float64{-45, 45}, lat.Values)
	assert.NotContains(t, lat.Attrs, "axis")
	assert.NotContains(t, got.Coords, dataset.DimLon)

	require.NotNil(t, got.Time)
	assert.Equal(t, dataset.DimTime, got.Time.Name)
	assert.Len(t, got.Time.Values, 2)
}

func TestStandardizeAppendsCellMethod(t *testing.T) {
	raw := rawTCO3(t)
	raw.Variable.Attrs["cell_methods"] = "time: mean"

	got, err := Standardize(raw, tco3Spec(), VarTCO3, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "time: mean lon: mean", got.Attrs["cell_methods"])
}

func TestStandardizeVMRO3(t *testing.T) {
	// t=1, latitude=2, level=2, longitude=2 row-major, all ones in ppmv.
	v, err := dataset.NewVariable("o3_vmr", []string{"t", "latitude", "level", "longitude"},
		[]int{1, 2, 2, 2}, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	v.Attrs = map[string]string{"units": "ppmv"}
	v.Coords["latitude"] = dataset.Coordinate{Name: "latitude", Values: []float64{-45, 45}}
	v.Coords["level"] = dataset.Coordinate{Name: "level", Values: []float64{10, 100}}
	v.Coords["longitude"] = dataset.Coordinate{Name: "longitude", Values: []float64{-90, 90}}
	v.Time = rawTimeAxis("t", 1)

	spec := VariableSpec{
		Name: "o3_vmr",
		Coordinates: map[string]string{
			dataset.DimTime: "t",
			dataset.DimLat:  "latitude",
			dataset.DimPlev: "level",
			dataset.DimLon:  "longitude",
		},
	}

	got, err := Standardize(&RawCollection{Variable: v}, spec, VarVMRO3, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, VarVMRO3, got.Name)
	assert.Equal(t, []string{dataset.DimTime, dataset.DimPlev, dataset.DimLat}, got.Dims)
	assert.Equal(t, []int{1, 2, 2}, got.Shape)
	assert.Equal(t, VMRO3Unit, got.Attrs["units"])
	assert.True(t, got.Float32)
	for _, val := range got.Data {
		assert.Equal(t, float64(float32(1e-6)), val)
	}
}

func TestStandardizeMissingCoordinate(t *testing.T) {
	raw := rawTCO3(t)
	spec := tco3Spec()
	spec.Coordinates[dataset.DimLat] = "y" // not a dimension of the raw data

	_, err := Standardize(raw, spec, VarTCO3, discardLogger())
	assert.True(t, errors.Is(err, ErrCoordinateNotFound))
}

func TestStandardizeUnknownUnits(t *testing.T) {
	raw := rawTCO3(t)
	raw.Variable.Name = "o3_vmr"
	raw.Variable.Attrs["units"] = "furlongs"
	spec := tco3Spec()
	spec.Name = "o3_vmr"

	// tco3 schema has no plev, so reuse the raw layout with the vmro3 target
	// by only checking the unit failure path.
	_, err := Standardize(raw, spec, VarVMRO3, discardLogger())
	assert.True(t, errors.Is(err, ErrUnknownUnit))
}
