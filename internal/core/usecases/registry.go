package usecases

import (
	"fmt"
	"sort"

	"github.com/asiergil/ctfgeo/internal/core/ports"
)

// TypeRegistry maps challenge kind identifiers to their implementation.
// Kinds are registered once at startup; the ports.ChallengeType
// interface guarantees every registered kind carries the full
// capability set (attempt, encode, format, solve, fail).
type TypeRegistry struct {
	types map[string]ports.ChallengeType
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]ports.ChallengeType)}
}

// Register adds a challenge kind. Registering the same kind twice is a
// wiring bug and returns an error.
func (r *TypeRegistry) Register(t ports.ChallengeType) error {
	kind := t.Kind()
	if kind == "" {
		return fmt.Errorf("challenge type has empty kind")
	}
	if _, exists := r.types[kind]; exists {
		return fmt.Errorf("challenge kind %q already registered", kind)
	}
	r.types[kind] = t
	return nil
}

// Resolve returns the implementation for a kind.
func (r *TypeRegistry) Resolve(kind string) (ports.ChallengeType, error) {
	t, ok := r.types[kind]
	if !ok {
		return nil, fmt.Errorf("unknown challenge kind %q", kind)
	}
	return t, nil
}

// Kinds returns the registered kind identifiers, sorted.
func (r *TypeRegistry) Kinds() []string {
	kinds := make([]string, 0, len(r.types))
	for k := range r.types {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
