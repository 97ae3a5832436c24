package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ozonelab/o3skim/internal/dataset"
	"github.com/ozonelab/o3skim/internal/domain"
)

// ErrInvalidSources marks a malformed sources configuration. It is fatal:
// malformed shapes are rejected at this boundary instead of failing deep
// inside adapter code.
var ErrInvalidSources = errors.New("invalid sources configuration")

// metadataKey is reserved at source and model level and cannot name a model.
const metadataKey = "metadata"

var canonicalAxes = map[string]struct{}{
	dataset.DimTime: {},
	dataset.DimLat:  {},
	dataset.DimLon:  {},
	dataset.DimPlev: {},
}

// requiredAxes lists the coordinate mappings each canonical variable must
// configure.
var requiredAxes = map[string][]string{
	domain.VarTCO3:  {dataset.DimTime, dataset.DimLat, dataset.DimLon},
	domain.VarVMRO3: {dataset.DimTime, dataset.DimLat, dataset.DimLon, dataset.DimPlev},
}

// LoadSources parses and validates the sources YAML file into immutable
// source specs, ordered by source name for deterministic builds.
func LoadSources(path string) ([]domain.SourceSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSources, err)
	}
	return ParseSources(raw)
}

// ParseSources validates a sources document already in memory.
func ParseSources(data []byte) ([]domain.SourceSpec, error) {
	var doc map[string]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSources, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no sources defined", ErrInvalidSources)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]domain.SourceSpec, 0, len(names))
	for _, name := range names {
		spec, err := parseSource(name, doc[name])
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseSource(name string, body map[string]any) (domain.SourceSpec, error) {
	spec := domain.SourceSpec{Name: name, Models: map[string]domain.ModelSpec{}}

	for key, val := range body {
		if key == metadataKey {
			md, err := asMetadata(val)
			if err != nil {
				return spec, fmt.Errorf("%w: source %q: %v", ErrInvalidSources, name, err)
			}
			spec.Metadata = md
			continue
		}
		model, err := parseModel(name, key, val)
		if err != nil {
			return spec, err
		}
		spec.Models[key] = model
		spec.ModelNames = append(spec.ModelNames, key)
	}
	sort.Strings(spec.ModelNames)

	if len(spec.Models) == 0 {
		return spec, fmt.Errorf("%w: source %q defines no models", ErrInvalidSources, name)
	}
	return spec, nil
}

func parseModel(source, model string, val any) (domain.ModelSpec, error) {
	spec := domain.ModelSpec{}
	body, ok := asMap(val)
	if !ok {
		return spec, fmt.Errorf("%w: model %q/%q is not a mapping", ErrInvalidSources, source, model)
	}

	for key, v := range body {
		switch key {
		case metadataKey:
			md, err := asMetadata(v)
			if err != nil {
				return spec, fmt.Errorf("%w: model %q/%q: %v", ErrInvalidSources, source, model, err)
			}
			spec.Metadata = md
		case domain.VarTCO3, domain.VarVMRO3:
			vs, err := parseVariable(source, model, key, v)
			if err != nil {
				return spec, err
			}
			if key == domain.VarTCO3 {
				spec.TCO3 = vs
			} else {
				spec.VMRO3 = vs
			}
		default:
			return spec, fmt.Errorf("%w: model %q/%q: unknown key %q", ErrInvalidSources, source, model, key)
		}
	}

	if spec.TCO3 == nil && spec.VMRO3 == nil {
		return spec, fmt.Errorf("%w: model %q/%q defines no variables", ErrInvalidSources, source, model)
	}
	return spec, nil
}

func parseVariable(source, model, variable string, val any) (*domain.VariableSpec, error) {
	errf := func(format string, args ...any) error {
		msg := fmt.Sprintf(format, args...)
		return fmt.Errorf("%w: variable %q/%q/%s: %s", ErrInvalidSources, source, model, variable, msg)
	}

	body, ok := asMap(val)
	if !ok {
		return nil, errf("not a mapping")
	}

	spec := &domain.VariableSpec{Coordinates: map[string]string{}}
	for key, v := range body {
		switch key {
		case "name":
			spec.Name, ok = v.(string)
			if !ok {
				return nil, errf("name is not a string")
			}
		case "paths":
			paths, err := asStringList(v)
			if err != nil {
				return nil, errf("paths: %v", err)
			}
			spec.Paths = paths
		case "coordinates":
			coords, ok := asMap(v)
			if !ok {
				return nil, errf("coordinates is not a mapping")
			}
			for axis, rawName := range coords {
				if _, ok := canonicalAxes[axis]; !ok {
					return nil, errf("unknown coordinate axis %q", axis)
				}
				s, ok := rawName.(string)
				if !ok || s == "" {
					return nil, errf("coordinate %q is not a string", axis)
				}
				spec.Coordinates[axis] = s
			}
		case metadataKey:
			md, err := asMetadata(v)
			if err != nil {
				return nil, errf("%v", err)
			}
			spec.Metadata = md
		default:
			return nil, errf("unknown key %q", key)
		}
	}

	if spec.Name == "" {
		return nil, errf("missing raw variable name")
	}
	if len(spec.Paths) == 0 {
		return nil, errf("missing paths")
	}
	for _, axis := range requiredAxes[variable] {
		if _, ok := spec.Coordinates[axis]; !ok {
			return nil, errf("missing coordinate mapping for %q", axis)
		}
	}
	return spec, nil
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	default:
		return nil, false
	}
}

func asMetadata(v any) (domain.Metadata, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("metadata is not a mapping")
	}
	return domain.Metadata(m).Clone(), nil
}

func asStringList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, fmt.Errorf("empty path")
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("entry %v is not a non-empty string", e)
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty path list")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a string or list of strings")
	}
}
