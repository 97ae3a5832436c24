package domain

import (
	"fmt"
	"log/slog"

	"github.com/ozonelab/o3skim/internal/dataset"
)

// RawCollection is one raw provider collection as produced by the array
// engine: the requested variable with provider dimension names, all files
// concatenated along the time axis in caller order, plus the file-level
// attributes of the collection.
type RawCollection struct {
	Variable    *dataset.Variable
	GlobalAttrs map[string]string
}

// canonicalDims is the standardized storage layout per canonical variable,
// time leading so partition writes append along the record dimension.
var canonicalDims = map[string][]string{
	VarTCO3:  {dataset.DimTime, dataset.DimLat},
	VarVMRO3: {dataset.DimTime, dataset.DimPlev, dataset.DimLat},
}

// Standardize maps a raw collection into the canonical schema for the given
// canonical variable name, per the standardization contract: attribute
// whitelisting, renaming, unit conversion (vmro3 only), longitude mean, and
// time materialization with calendar conversion.
func Standardize(raw *RawCollection, spec VariableSpec, canonical string, logger *slog.Logger) (*dataset.Variable, error) {
	want, ok := canonicalDims[canonical]
	if !ok {
		return nil, fmt.Errorf("unknown canonical variable %q", canonical)
	}
	v := raw.Variable.Clone()

	// File-level attributes are whitelisted and then dropped: the output
	// dataset carries merged metadata instead of provider globals.
	if kept := FilterAttrs(raw.GlobalAttrs); len(kept) < len(raw.GlobalAttrs) {
		logger.Debug("stripped non-canonical global attributes",
			"variable", canonical, "kept", len(kept), "stripped", len(raw.GlobalAttrs)-len(kept))
	}
	v.Attrs = FilterAttrs(v.Attrs)
	for name, c := range v.Coords {
		c.Attrs = FilterAttrs(c.Attrs)
		v.Coords[name] = c
	}
	if v.Time != nil {
		v.Time.Attrs = FilterAttrs(v.Time.Attrs)
	}

	if err := renameCoordinates(v, spec.Coordinates); err != nil {
		return nil, err
	}
	v.Name = canonical

	if canonical == VarVMRO3 {
		if err := ConvertVMRO3Units(v); err != nil {
			return nil, err
		}
	}

	// Zonal mean: reduce away longitude and drop its coordinate (and bounds).
	reduced, err := v.MeanOverDim(dataset.DimLon)
	if err != nil {
		return nil, err
	}
	v = reduced
	appendCellMethod(v, "lon: mean")

	if v.Time == nil {
		return nil, fmt.Errorf("variable %q has no materialized time coordinate", canonical)
	}
	if v.Time.Converted {
		logger.Warn("non-standard calendar converted to proleptic gregorian; dates are approximate",
			"variable", canonical, "calendar", v.Time.Calendar)
	}

	out, err := v.Transpose(want...)
	if err != nil {
		return nil, fmt.Errorf("variable %q: unexpected axes %v: %w", canonical, v.Dims, err)
	}
	return out, nil
}

// renameCoordinates renames raw dimension and coordinate names to their
// canonical counterparts. A configured raw coordinate that cannot be resolved
// in the dataset is a failure.
func renameCoordinates(v *dataset.Variable, coords map[string]string) error {
	for canonical, raw := range coords {
		if canonical == dataset.DimTime {
			if v.Time == nil || !v.HasDim(raw) {
				return fmt.Errorf("%w: %q (time)", ErrCoordinateNotFound, raw)
			}
			renameDim(v, raw, canonical)
			v.Time.Name = canonical
			continue
		}
		if !v.HasDim(raw) {
			return fmt.Errorf("%w: %q (%s)", ErrCoordinateNotFound, raw, canonical)
		}
		renameDim(v, raw, canonical)
		if c, ok := v.Coords[raw]; ok {
			delete(v.Coords, raw)
			c.Name = canonical
			v.Coords[canonical] = c
		}
	}
	return nil
}

func renameDim(v *dataset.Variable, from, to string) {
	for i, d := range v.Dims {
		if d == from {
			v.Dims[i] = to
		}
	}
}

// appendCellMethod records a reduction in the CF cell_methods attribute.
func appendCellMethod(v *dataset.Variable, method string) {
	if cur, ok := v.Attrs["cell_methods"]; ok && cur != "" {
		v.Attrs["cell_methods"] = cur + " " + method
		return
	}
	v.Attrs["cell_methods"] = method
}
