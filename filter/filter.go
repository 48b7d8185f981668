package filter

import (
	"github.com/prsense/ghingest/types"
)

// Spec describes which (entity, kind) combinations are retained during
// ingestion. It is a pure predicate and holds no mutable state.
type Spec struct {
	entities map[string]struct{}
	kinds    map[types.EventKind]struct{}
}

// NewSpec builds a Spec from the configured entities and event kinds.
// Matching is exact and case-sensitive on the canonical owner/name string.
func NewSpec(entities []string, kinds []types.EventKind) *Spec {
	s := &Spec{
		entities: make(map[string]struct{}, len(entities)),
		kinds:    make(map[types.EventKind]struct{}, len(kinds)),
	}
	for _, e := range entities {
		s.entities[e] = struct{}{}
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}
	return s
}

// Matches reports whether the event's (entity, kind) pair is a member of
// the spec. Partial or prefix entity matches are never accepted.
func (s *Spec) Matches(event *types.RawEvent) bool {
	if event == nil {
		return false
	}
	if _, ok := s.entities[event.Entity]; !ok {
		return false
	}
	_, ok := s.kinds[event.Kind]
	return ok
}
