package user

import (
	"fmt"
	"slices"
	"strings"
)

// Attributes is a set of attributes unique by name.
type Attributes struct {
	byName map[string]Attribute
}

// NewAttributes builds a set from attrs, which must not repeat a name.
func NewAttributes(attrs ...Attribute) (*Attributes, error) {
	set := &Attributes{byName: make(map[string]Attribute, len(attrs))}
	var dup []string
	for _, a := range attrs {
		if _, ok := set.byName[a.name]; ok && !slices.Contains(dup, a.name) {
			dup = append(dup, a.name)
		}
		set.byName[a.name] = a
	}
	if len(dup) > 0 {
		return nil, fmt.Errorf("%w: attributes must be unique by name, repeated: %s", ErrInvalid, strings.Join(dup, ", "))
	}
	return set, nil
}

// Add inserts a, replacing any attribute with the same name.
func (s *Attributes) Add(a Attribute) {
	if s.byName == nil {
		s.byName = make(map[string]Attribute)
	}
	s.byName[a.name] = a
}

// Get returns the attribute called name.
func (s *Attributes) Get(name string) (Attribute, bool) {
	if s == nil {
		return Attribute{}, false
	}
	a, ok := s.byName[name]
	return a, ok
}

// Len reports the number of attributes.
func (s *Attributes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byName)
}

// List returns the attributes sorted by name.
func (s *Attributes) List() []Attribute {
	if s == nil {
		return nil
	}
	out := make([]Attribute, 0, len(s.byName))
	for _, a := range s.byName {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Attribute) int { return strings.Compare(a.name, b.name) })
	return out
}
