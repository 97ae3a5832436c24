package domain

// Source aggregates the successfully loaded models of one named data
// provider. It is immutable after construction: models whose builds failed
// entirely are absent from the mapping, never present empty.
type Source struct {
	name     string
	metadata Metadata
	models   map[string]*Model
	order    []string
}

// NewSource assembles a Source from already-built models. Models with zero
// loaded variables are excluded. Order determines Models() listing order;
// names in order with no matching non-empty model are skipped.
func NewSource(name string, metadata Metadata, models map[string]*Model, order []string) *Source {
	s := &Source{
		name:     name,
		metadata: metadata.Clone(),
		models:   make(map[string]*Model, len(models)),
	}
	for _, n := range order {
		m, ok := models[n]
		if !ok || m == nil || m.Empty() {
			continue
		}
		s.models[n] = m
		s.order = append(s.order, n)
	}
	return s
}

// Name returns the source name.
func (s *Source) Name() string { return s.name }

// Metadata returns the source-level metadata.
func (s *Source) Metadata() Metadata { return s.metadata }

// Models returns the loaded model names in build order.
func (s *Source) Models() []string {
	return append([]string(nil), s.order...)
}

// Model looks up a loaded model by name. Names that never loaded, including
// models excluded after a contained build failure, yield ErrModelNotFound.
func (s *Source) Model(name string) (*Model, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, ErrModelNotFound
	}
	return m, nil
}
