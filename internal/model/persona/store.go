package persona

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Store exposes personality lookup to the controller and HTTP handlers.
type Store interface {
	List() []Personality
	FindByKey(key string) (Personality, bool)
}

// MemoryStore implements Store with an in-memory slice. It is read-only
// after construction.
type MemoryStore struct {
	items []Personality
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personalities.
func NewMemoryStore(items []Personality) *MemoryStore {
	return &MemoryStore{items: append([]Personality(nil), items...)}
}

// List returns the personality list.
func (s *MemoryStore) List() []Personality {
	out := make([]Personality, len(s.items))
	copy(out, s.items)
	return out
}

// FindByKey looks up a personality by key.
func (s *MemoryStore) FindByKey(key string) (Personality, bool) {
	for _, item := range s.items {
		if item.Key == key {
			return item, true
		}
	}
	return Personality{}, false
}

// Resolve picks the personality a new session starts with: the preferred
// key when known, otherwise the first entry. ok is false only for an empty
// store.
func Resolve(s Store, preferred string) (Personality, bool) {
	if p, ok := s.FindByKey(preferred); ok {
		return p, true
	}
	items := s.List()
	if len(items) == 0 {
		return Personality{}, false
	}
	return items[0], true
}

type fileFormat struct {
	Personalities []Personality `yaml:"personalities"`
}

// LoadFile reads a YAML file of the form `personalities: [{key, label, greeting}]`.
func LoadFile(path string) ([]Personality, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read personalities file %s", path)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse personalities file %s", path)
	}

	seen := make(map[string]struct{}, len(doc.Personalities))
	for i, p := range doc.Personalities {
		if p.Key == "" {
			return nil, errors.Errorf("personality #%d has no key", i+1)
		}
		if _, dup := seen[p.Key]; dup {
			return nil, errors.Errorf("duplicate personality key %q", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return doc.Personalities, nil
}
