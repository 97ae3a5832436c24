package domain

import (
	"fmt"
	"strings"

	"github.com/ozonelab/o3skim/internal/dataset"
)

// VMRO3Unit is the canonical unit of the standardized vmro3_zm variable.
const VMRO3Unit = "mol mol-1"

// vmro3UnitFactor maps a declared raw unit string to the multiplier that
// brings values into mol mol-1. Lookup is exact on the normalized (trimmed,
// lowercased) string; anything else is an ErrUnknownUnit failure.
var vmro3UnitFactor = map[string]float64{
	"mol mol-1":   1,
	"mol/mol":     1,
	"mole mole-1": 1,
	"1":           1,
	"ppmv":        1e-6,
	"ppm":         1e-6,
	"1e-6":        1e-6,
	"ppbv":        1e-9,
	"ppb":         1e-9,
	"pptv":        1e-12,
	"ppt":         1e-12,
}

// KnownVMRO3Unit reports whether a declared unit string has a conversion to
// mol mol-1.
func KnownVMRO3Unit(declared string) bool {
	_, ok := vmro3UnitFactor[strings.ToLower(strings.TrimSpace(declared))]
	return ok
}

// ConvertVMRO3Units converts the variable's values to mol mol-1 based on its
// declared units attribute, rounds them through single precision, and
// overwrites the units attribute with the canonical unit string.
func ConvertVMRO3Units(v *dataset.Variable) error {
	declared, ok := v.Attrs["units"]
	if !ok {
		return fmt.Errorf("%w: variable %q declares no units", ErrUnknownUnit, v.Name)
	}
	factor, ok := vmro3UnitFactor[strings.ToLower(strings.TrimSpace(declared))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, declared)
	}
	for i, val := range v.Data {
		v.Data[i] = float64(float32(val * factor))
	}
	v.Float32 = true
	v.Attrs["units"] = VMRO3Unit
	return nil
}
