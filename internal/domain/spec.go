package domain

// Canonical variable and axis names of the standardized schema.
const (
	VarTCO3  = "tco3_zm"
	VarVMRO3 = "vmro3_zm"
)

// VariableSpec describes how to load one canonical variable from a raw
// provider collection. Coordinates maps canonical axis names (time, lat, lon,
// plev) to the provider's raw coordinate names.
type VariableSpec struct {
	Name        string            // raw on-disk variable name
	Paths       []string          // path expressions, order authoritative
	Coordinates map[string]string // canonical axis -> raw name
	Metadata    Metadata          // attached verbatim after standardization
}

// ModelSpec holds the variable loading statements for one named experiment.
// Either canonical variable may be absent.
type ModelSpec struct {
	TCO3     *VariableSpec
	VMRO3    *VariableSpec
	Metadata Metadata
}

// SourceSpec is the validated, immutable configuration record for one data
// provider, parsed once at load time.
type SourceSpec struct {
	Name       string
	Metadata   Metadata
	Models     map[string]ModelSpec
	ModelNames []string // deterministic build order
}
