package domain

import (
	"github.com/ozonelab/o3skim/internal/dataset"
)

// Model is a named experiment holding standardized canonical variables.
// Either variable field may be nil; a Model with zero variables is a valid
// object even though Sources never list one.
type Model struct {
	Name     string
	TCO3     *dataset.Variable
	VMRO3    *dataset.Variable
	Metadata Metadata

	// VarMeta holds the caller-supplied per-variable metadata blocks, keyed
	// by canonical variable name.
	VarMeta map[string]Metadata
}

// Empty reports whether no variable loaded.
func (m *Model) Empty() bool {
	return m.TCO3 == nil && m.VMRO3 == nil
}

// Variables returns the loaded variables keyed by canonical name, in schema
// order.
func (m *Model) Variables() []*dataset.Variable {
	var out []*dataset.Variable
	if m.TCO3 != nil {
		out = append(out, m.TCO3)
	}
	if m.VMRO3 != nil {
		out = append(out, m.VMRO3)
	}
	return out
}
