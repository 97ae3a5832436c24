package domain

import (
	"dario.cat/mergo"
)

// Metadata is a nested string-keyed mapping carried from configuration to the
// skim output sidecar. Values are scalars or nested mappings.
type Metadata map[string]any

// Clone deep-copies the metadata. Nested mappings are normalized to plain
// map[string]any so merges see a uniform shape.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return Metadata(cloneMap(m))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case Metadata:
			out[k] = cloneMap(t)
		case map[string]any:
			out[k] = cloneMap(t)
		default:
			out[k] = v
		}
	}
	return out
}

// Merge combines m with a more specific layer. The merge recurses into values
// that are mappings on both sides; at any other conflict the overlay value
// wins. Neither operand is mutated.
func (m Metadata) Merge(overlay Metadata) (Metadata, error) {
	base := cloneMap(m)
	if base == nil {
		base = map[string]any{}
	}
	if err := mergo.Merge(&base, cloneMap(overlay), mergo.WithOverride); err != nil {
		return nil, err
	}
	return Metadata(base), nil
}

// MergeLayers folds metadata layers left to right, each subsequent layer
// taking precedence at leaf conflicts. Empty layers are skipped.
func MergeLayers(layers ...Metadata) (Metadata, error) {
	out := Metadata{}
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		var err error
		out, err = out.Merge(layer)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
