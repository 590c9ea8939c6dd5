package resolve

import (
	"context"

	"bpmastats/internal/textnorm"
)

// InlineSource answers from fixed name → id tables, for offline runs.
type InlineSource struct {
	byField map[Field]map[string]string
}

// NewInlineSource normalizes the keys of both tables.
func NewInlineSource(scientific, common map[string]string) *InlineSource {
	s := &InlineSource{byField: map[Field]map[string]string{
		Scientific: {},
		Common:     {},
	}}
	for name, id := range scientific {
		s.byField[Scientific][textnorm.NameKey(name)] = id
	}
	for name, id := range common {
		s.byField[Common][textnorm.NameKey(name)] = id
	}
	return s
}

func (s *InlineSource) Lookup(_ context.Context, field Field, name string) (string, bool, error) {
	id, ok := s.byField[field][name]
	return id, ok, nil
}
