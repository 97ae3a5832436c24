// Command gensynth generates a synthetic multi-model ozone archive plus a
// matching sources.yaml, for local runs and end-to-end testing. The files use
// the raw provider layout (time as the trailing dimension, a longitude axis,
// vmro3 in ppmv) so a skim run exercises the full standardization path.
//
// Usage:
//
//	go run ./cmd/gensynth -out testdata/synth -models ModelA,ModelB -years 25
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"gopkg.in/yaml.v3"
)

var (
	lonValues  = []float64{-180, 0, 180}
	latValues  = []float64{-90, 0, 90}
	plevValues = []float64{1, 10, 100, 1000}
)

const timeUnits = "days since 2000-01-01"

var timeEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "directory to write the synthetic archive into")
	source := flag.String("source", "SourceSynth", "source name used in sources.yaml")
	models := flag.String("models", "ModelA,ModelB", "comma-separated model names")
	startYear := flag.Int("start-year", 2000, "first year of data")
	years := flag.Int("years", 25, "number of years of monthly records")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	names := strings.Split(*models, ",")
	for _, model := range names {
		if err := writeModel(*outDir, strings.TrimSpace(model), *startYear, *years); err != nil {
			return fmt.Errorf("model %s: %w", model, err)
		}
		log.Printf("%s: %d years of monthly tco3 and vmro3", model, *years)
	}

	sourcesPath := filepath.Join(*outDir, "sources.yaml")
	if err := writeSources(sourcesPath, *source, names, *outDir); err != nil {
		return fmt.Errorf("writing sources file: %w", err)
	}
	log.Printf("wrote sources file: %s", sourcesPath)
	return nil
}

// writeModel emits one file per variable per year, so a skim run also
// exercises multi-file concatenation.
func writeModel(outDir, model string, startYear, years int) error {
	for year := startYear; year < startYear+years; year++ {
		times := monthlyTimes(year)

		tco3Path := filepath.Join(outDir, model, "tco3", fmt.Sprintf("tco3_%d.nc", year))
		if err := writeFile(tco3Path, "tco3", []string{"lon", "lat", "time"},
			tco3Values(times), times, nil, map[string]string{
				"standard_name": "atmosphere_mole_content_of_ozone",
				"units":         "DU",
				"history":       "synthetic data",
			}); err != nil {
			return err
		}

		vmro3Path := filepath.Join(outDir, model, "vmro3", fmt.Sprintf("vmro3_%d.nc", year))
		if err := writeFile(vmro3Path, "vmro3", []string{"lon", "lat", "plev", "time"},
			vmro3Values(times), times, plevValues, map[string]string{
				"standard_name": "mole_fraction_of_ozone_in_air",
				"units":         "ppmv",
				"history":       "synthetic data",
			}); err != nil {
			return err
		}
	}
	return nil
}

func monthlyTimes(year int) []float64 {
	out := make([]float64, 12)
	for m := 0; m < 12; m++ {
		t := time.Date(year, time.Month(m+1), 15, 0, 0, 0, 0, time.UTC)
		out[m] = t.Sub(timeEpoch).Hours() / 24
	}
	return out
}

// tco3Values builds a lon x lat x time block with a smooth seasonal signal so
// zonal means are recognizable in plots.
func tco3Values(times []float64) any {
	block := make([][][]float64, len(lonValues))
	for i := range lonValues {
		block[i] = make([][]float64, len(latValues))
		for j, lat := range latValues {
			row := make([]float64, len(times))
			for k, t := range times {
				row[k] = 300 + 50*math.Sin(2*math.Pi*t/365.25) + lat/3 + float64(i)
			}
			block[i][j] = row
		}
	}
	return block
}

// vmro3Values builds a lon x lat x plev x time block in ppmv.
func vmro3Values(times []float64) any {
	block := make([][][][]float64, len(lonValues))
	for i := range lonValues {
		block[i] = make([][][]float64, len(latValues))
		for j, lat := range latValues {
			block[i][j] = make([][]float64, len(plevValues))
			for p, plev := range plevValues {
				row := make([]float64, len(times))
				for k, t := range times {
					row[k] = 8*math.Exp(-plev/500) + 0.5*math.Sin(2*math.Pi*t/365.25) + lat/900
				}
				block[i][j][p] = row
			}
		}
	}
	return block
}

func writeFile(path, name string, dims []string, values any, times, plev []float64, attrs map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}

	if err := addCoord(cw, "lon", lonValues, "degrees_east"); err != nil {
		return err
	}
	if err := addCoord(cw, "lat", latValues, "degrees_north"); err != nil {
		return err
	}
	if plev != nil {
		if err := addCoord(cw, "plev", plev, "hPa"); err != nil {
			return err
		}
	}

	timeAttrs, err := util.NewOrderedMap(
		[]string{"calendar", "units"},
		map[string]any{"calendar": "standard", "units": timeUnits})
	if err != nil {
		return err
	}
	if err := cw.AddVar("time", api.Variable{
		Values:     times,
		Dimensions: []string{"time"},
		Attributes: timeAttrs,
	}); err != nil {
		return err
	}

	keys := make([]string, 0, len(attrs))
	vals := make(map[string]any, len(attrs))
	for _, k := range []string{"history", "standard_name", "units"} {
		if v, ok := attrs[k]; ok {
			keys = append(keys, k)
			vals[k] = v
		}
	}
	am, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return err
	}
	if err := cw.AddVar(name, api.Variable{
		Values:     values,
		Dimensions: dims,
		Attributes: am,
	}); err != nil {
		return err
	}
	return cw.Close()
}

func addCoord(cw *cdf.CDFWriter, name string, values []float64, units string) error {
	am, err := util.NewOrderedMap([]string{"units"}, map[string]any{"units": units})
	if err != nil {
		return err
	}
	return cw.AddVar(name, api.Variable{
		Values:     append([]float64(nil), values...),
		Dimensions: []string{name},
		Attributes: am,
	})
}

// writeSources emits a sources.yaml describing the synthetic archive in the
// shape the skim loader consumes.
func writeSources(path, source string, models []string, outDir string) error {
	doc := map[string]any{
		source: sourceEntry(models, outDir),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func sourceEntry(models []string, outDir string) map[string]any {
	entry := map[string]any{
		"metadata": map[string]any{
			"institution": "synthetic",
			"description": "generated test archive",
		},
	}
	for _, model := range models {
		model = strings.TrimSpace(model)
		entry[model] = map[string]any{
			"tco3_zm": map[string]any{
				"name":  "tco3",
				"paths": filepath.Join(outDir, model, "tco3", "*.nc"),
				"coordinates": map[string]string{
					"time": "time", "lat": "lat", "lon": "lon",
				},
			},
			"vmro3_zm": map[string]any{
				"name":  "vmro3",
				"paths": filepath.Join(outDir, model, "vmro3", "*.nc"),
				"coordinates": map[string]string{
					"time": "time", "lat": "lat", "lon": "lon", "plev": "plev",
				},
			},
		}
	}
	return entry
}
