package domain

// canonicalAttrs is the whitelist of attribute keys that survive
// standardization, at global, variable and coordinate level.
var canonicalAttrs = map[string]struct{}{
	"standard_name": {},
	"long_name":     {},
	"units":         {},
	"cell_methods":  {},
	"bounds":        {},
}

// FilterAttrs returns a copy of attrs restricted to the canonical attribute
// whitelist. Applying the filter twice yields the same result as once.
func FilterAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if _, ok := canonicalAttrs[k]; ok {
			out[k] = v
		}
	}
	return out
}
