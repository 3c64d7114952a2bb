package datastore

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// LabelSet is an unordered set of labels attached to a snapshot or recovery
// point reference. The zero value is usable; Add allocates on first use.
type LabelSet struct {
	elements map[string]struct{}
}

// NewLabelSet builds a LabelSet from the given labels. Duplicates collapse.
func NewLabelSet(labels ...string) LabelSet {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}

	return LabelSet{
		elements: set,
	}
}

// Add inserts one or more labels into the set.
func (s *LabelSet) Add(labels ...string) {
	if s.elements == nil {
		s.elements = make(map[string]struct{})
	}
	for _, l := range labels {
		s.elements[l] = struct{}{}
	}
}

// Remove deletes a label from the set, if present.
func (s *LabelSet) Remove(label string) {
	delete(s.elements, label)
}

// Contains reports whether the set holds the given label.
func (s *LabelSet) Contains(label string) bool {
	_, ok := s.elements[label]

	return ok
}

// String returns the labels sorted and joined by single spaces.
//
// Implements the fmt.Stringer interface.
func (s *LabelSet) String() string {
	labels := s.List()
	if len(labels) == 0 {
		return ""
	}

	return strings.Join(labels, " ")
}

// List returns the labels as a sorted slice. The result is never nil.
func (s *LabelSet) List() []string {
	if len(s.elements) == 0 {
		return []string{}
	}

	labels := slices.Collect(maps.Keys(s.elements))

	// Sorted so output is deterministic across runs.
	slices.Sort(labels)

	return labels
}

// Equal reports whether both sets hold exactly the same labels.
func (s *LabelSet) Equal(other LabelSet) bool {
	return maps.Equal(s.elements, other.elements)
}

// Length returns the number of labels in the set.
func (s *LabelSet) Length() int {
	return len(s.elements)
}

// IsEmpty reports whether the set holds no labels.
func (s *LabelSet) IsEmpty() bool {
	return s.Length() == 0
}

// Clone returns an independent copy of the set.
func (s *LabelSet) Clone() LabelSet {
	return LabelSet{
		elements: maps.Clone(s.elements),
	}
}

// MarshalJSON encodes the set as a sorted JSON array of strings.
//
// Implements the json.Marshaler interface.
func (s LabelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes a JSON array of strings into the set, replacing any
// existing contents.
//
// Implements the json.Unmarshaler interface.
func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}

	*s = NewLabelSet(labels...)

	return nil
}
