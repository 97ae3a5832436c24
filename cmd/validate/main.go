// Command validate performs preflight integrity checks on a sources file and
// the archive it points at: path expressions must match files, every file
// must carry the configured raw variable with the mapped coordinate
// dimensions, time units must be decodable, and vmro3 units must have a
// known conversion. It reads no data arrays, so it is cheap to run before a
// long skim.
//
// Usage:
//
//	go run ./cmd/validate -sources testdata/synth/sources.yaml
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/ozonelab/o3skim/internal/config"
	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	sourcesPath := flag.String("sources", "sources.yaml", "path to the sources description file")
	flag.Parse()

	specs, err := config.LoadSources(*sourcesPath)
	if err != nil {
		return err
	}

	var problems int
	for _, source := range specs {
		for _, model := range source.ModelNames {
			spec := source.Models[model]
			for variable, vs := range map[string]*domain.VariableSpec{
				domain.VarTCO3:  spec.TCO3,
				domain.VarVMRO3: spec.VMRO3,
			} {
				if vs == nil {
					continue
				}
				problems += checkVariable(source.Name, model, variable, vs)
			}
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	fmt.Println("ok")
	return nil
}

func checkVariable(source, model, variable string, vs *domain.VariableSpec) int {
	report := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "%s/%s/%s: %s\n", source, model, variable, fmt.Sprintf(format, args...))
	}

	var files []string
	for _, p := range vs.Paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			report("bad path expression %q: %v", p, err)
			return 1
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		report("no files match path expressions %v", vs.Paths)
		return 1
	}

	var problems int
	for _, file := range files {
		if err := checkFile(file, variable, vs); err != nil {
			report("%s: %v", file, err)
			problems++
		}
	}
	return problems
}

func checkFile(path, variable string, vs *domain.VariableSpec) error {
	g, err := netcdf.Open(path)
	if err != nil {
		return err
	}
	defer g.Close()

	raw, err := g.GetVarGetter(vs.Name)
	if err != nil {
		return fmt.Errorf("variable %q: %w", vs.Name, err)
	}

	dims := map[string]struct{}{}
	for _, d := range raw.Dimensions() {
		dims[d] = struct{}{}
	}
	for axis, rawName := range vs.Coordinates {
		if _, ok := dims[rawName]; !ok {
			return fmt.Errorf("coordinate %q (axis %s) is not a dimension of %q", rawName, axis, vs.Name)
		}
	}

	if err := checkTime(g, vs.Coordinates[dataset.DimTime]); err != nil {
		return err
	}

	if variable == domain.VarVMRO3 {
		if units := attrString(raw.Attributes(), "units"); !domain.KnownVMRO3Unit(units) {
			return fmt.Errorf("no conversion for vmro3 units %q", units)
		}
	}
	return nil
}

// checkTime verifies that the time coordinate's units and calendar decode,
// without materializing the axis values.
func checkTime(g api.Group, name string) error {
	tv, err := g.GetVarGetter(name)
	if err != nil {
		return fmt.Errorf("time coordinate %q: %w", name, err)
	}
	units := attrString(tv.Attributes(), "units")
	calendar := attrString(tv.Attributes(), "calendar")
	if _, _, err := dataset.DecodeTime(nil, units, calendar); err != nil {
		return fmt.Errorf("time coordinate %q: %w", name, err)
	}
	return nil
}

func attrString(am api.AttributeMap, key string) string {
	if am == nil {
		return ""
	}
	val, has := am.Get(key)
	if !has {
		return ""
	}
	s, _ := val.(string)
	return s
}
