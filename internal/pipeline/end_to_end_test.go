package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	netcdfadapter "github.com/ozonelab/o3skim/internal/adapter/netcdf"
	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
	"github.com/ozonelab/o3skim/internal/observability"
)

// The end-to-end test drives the real stack: raw provider files on disk with
// non-canonical names, through the collection reader, standardization and the
// skim engine, down to written partition files.

var archiveEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func archiveMonths(year int) []float64 {
	out := make([]float64, 12)
	for m := 0; m < 12; m++ {
		mid := time.Date(year, time.Month(m+1), 15, 0, 0, 0, 0, time.UTC)
		out[m] = mid.Sub(archiveEpoch).Hours() / 24
	}
	return out
}

func writeArchiveVar(t *testing.T, path, name string, dims []string, values any, offsets []float64, attrs map[string]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	coords := map[string][]float64{
		"longitude": {-180, 0, 180},
		"latitude":  {-45, 45},
		"level":     {10, 100},
	}
	for _, dim := range dims {
		if dim == "t" {
			continue
		}
		am, err := util.NewOrderedMap(nil, nil)
		require.NoError(t, err)
		require.NoError(t, cw.AddVar(dim, api.Variable{
			Values:     coords[dim],
			Dimensions: []string{dim},
			Attributes: am,
		}))
	}

	tm, err := util.NewOrderedMap(
		[]string{"calendar", "units"},
		map[string]any{"calendar": "standard", "units": "days since 2000-01-01"})
	require.NoError(t, err)
	require.NoError(t, cw.AddVar("t", api.Variable{
		Values:     offsets,
		Dimensions: []string{"t"},
		Attributes: tm,
	}))

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	am, err := util.NewOrderedMap(keys, attrs)
	require.NoError(t, err)
	require.NoError(t, cw.AddVar(name, api.Variable{
		Values:     values,
		Dimensions: dims,
		Attributes: am,
	}))
	require.NoError(t, cw.Close())
}

// writeArchiveYear emits one raw file per variable for one year: time
// trailing under the name "t", a longitude axis, vmro3 in ppmv.
func writeArchiveYear(t *testing.T, root string, year int) {
	t.Helper()
	offsets := archiveMonths(year)

	toz := make([][][]float64, 3)
	for i := range toz {
		toz[i] = make([][]float64, 2)
		for j := range toz[i] {
			row := make([]float64, len(offsets))
			for k := range row {
				row[k] = 300 + float64(10*i+j+k)
			}
			toz[i][j] = row
		}
	}
	writeArchiveVar(t, filepath.Join(root, "toz", fmt.Sprintf("toz_%d.nc", year)),
		"toz", []string{"longitude", "latitude", "t"}, toz, offsets,
		map[string]any{"units": "DU"})

	vmr := make([][][][]float64, 3)
	for i := range vmr {
		vmr[i] = make([][][]float64, 2)
		for j := range vmr[i] {
			vmr[i][j] = make([][]float64, 2)
			for p := range vmr[i][j] {
				row := make([]float64, len(offsets))
				for k := range row {
					row[k] = 1 + float64(p)
				}
				vmr[i][j][p] = row
			}
		}
	}
	writeArchiveVar(t, filepath.Join(root, "vmr", fmt.Sprintf("vmr_%d.nc", year)),
		"vmro3", []string{"longitude", "latitude", "level", "t"}, vmr, offsets,
		map[string]any{"units": "ppmv"})
}

func TestSkimArchiveEndToEnd(t *testing.T) {
	archive := t.TempDir()
	for year := 2000; year < 2025; year++ {
		writeArchiveYear(t, archive, year)
	}

	spec := domain.SourceSpec{
		Name: "SourceE2E",
		Models: map[string]domain.ModelSpec{
			"ModelA": {
				TCO3: &domain.VariableSpec{
					Name:  "toz",
					Paths: []string{filepath.Join(archive, "toz", "*.nc")},
					Coordinates: map[string]string{
						dataset.DimTime: "t",
						dataset.DimLat:  "latitude",
						dataset.DimLon:  "longitude",
					},
				},
				VMRO3: &domain.VariableSpec{
					Name:  "vmro3",
					Paths: []string{filepath.Join(archive, "vmr", "*.nc")},
					Coordinates: map[string]string{
						dataset.DimTime: "t",
						dataset.DimLat:  "latitude",
						dataset.DimLon:  "longitude",
						dataset.DimPlev: "level",
					},
				},
			},
		},
		ModelNames: []string{"ModelA"},
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	loader := NewLoader(netcdfadapter.NewReader(logger), logger, metrics, 2, time.Minute)
	source, loadReport := loader.BuildSource(context.Background(), spec)
	require.Empty(t, loadReport.Failures)
	require.Equal(t, []string{"ModelA"}, source.Models())

	out := t.TempDir()
	engine := NewEngine(netcdfadapter.NewWriter(logger), nil, logger, metrics, 2)
	reports, err := engine.SkimSource(context.Background(), source, out, GroupByDecade)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Failures)

	dir := filepath.Join(out, "SourceE2E_ModelA")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 6, "three decade files per variable")

	wantRecords := map[string]int{"2000-2010": 120, "2010-2020": 120, "2020-2030": 60}
	for _, variable := range []string{domain.VarTCO3, domain.VarVMRO3} {
		for span, records := range wantRecords {
			checkPartition(t, filepath.Join(dir, fmt.Sprintf("%s_%s.nc", variable, span)), variable, records)
		}
	}
}

// checkPartition opens one written partition and verifies the canonical
// layout: time-leading dimensions, the right record count, and no longitude
// axis on any variable in the file.
func checkPartition(t *testing.T, path, variable string, records int) {
	t.Helper()
	g, err := netcdf.Open(path)
	require.NoError(t, err)
	defer g.Close()

	for _, name := range g.ListVariables() {
		vg, err := g.GetVarGetter(name)
		require.NoError(t, err)
		for _, dim := range vg.Dimensions() {
			assert.NotContains(t, []string{"lon", "longitude"}, dim, "%s: variable %s", path, name)
		}
	}

	vg, err := g.GetVarGetter(variable)
	require.NoError(t, err)
	want := []string{dataset.DimTime, dataset.DimLat}
	if variable == domain.VarVMRO3 {
		want = []string{dataset.DimTime, dataset.DimPlev, dataset.DimLat}
	}
	assert.Equal(t, want, vg.Dimensions())

	tv, err := g.GetVarGetter(dataset.DimTime)
	require.NoError(t, err)
	assert.EqualValues(t, records, tv.Len())
}
