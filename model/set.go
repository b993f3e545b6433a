package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Entity is anything carrying a store-assigned identity.
type Entity interface {
	Identity() ID
}

// Set is an identity-keyed membership set. It holds value copies of its
// members, so adding or removing never touches the referenced entity.
// Members are kept ordered by identity for deterministic iteration.
type Set[T Entity] struct {
	items []T
}

// NewSet builds a set from members, ignoring duplicates.
func NewSet[T Entity](members ...T) (Set[T], error) {
	var s Set[T]
	for _, m := range members {
		if err := s.Add(m); err != nil {
			return Set[T]{}, err
		}
	}
	return s, nil
}

// Add inserts member. Adding a member that is already present is a no-op.
// Members without identity are rejected with ErrUnsavedReference.
func (s *Set[T]) Add(member T) error {
	id := member.Identity()
	if !id.Valid() {
		return fmt.Errorf("add %T: %w", member, ErrUnsavedReference)
	}
	i, found := s.search(id.value)
	if found {
		return nil
	}
	// copy on write: value copies of the owning article share items
	s.items = slices.Insert(slices.Clip(s.items), i, member)
	return nil
}

// Remove drops the member with the same identity. Removing an absent member is a no-op.
func (s *Set[T]) Remove(member T) {
	id := member.Identity()
	if !id.Valid() {
		return
	}
	i, found := s.search(id.value)
	if !found {
		return
	}
	s.items = slices.Delete(slices.Clone(s.items), i, i+1)
}

// Contains reports whether a member with identity id is present.
func (s Set[T]) Contains(id ID) bool {
	if !id.Valid() {
		return false
	}
	_, found := s.search(id.value)
	return found
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the members ordered by identity.
func (s Set[T]) Items() []T {
	return append([]T(nil), s.items...)
}

// Clone returns a set that shares no storage with s.
func (s Set[T]) Clone() Set[T] {
	if s.items == nil {
		return Set[T]{}
	}
	return Set[T]{items: append([]T(nil), s.items...)}
}

// IDs returns member identities in ascending order.
func (s Set[T]) IDs() []int64 {
	ids := make([]int64, len(s.items))
	for i, m := range s.items {
		ids[i] = m.Identity().value
	}
	return ids
}

func (s Set[T]) search(id int64) (int, bool) {
	i := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Identity().value >= id
	})
	return i, i < len(s.items) && s.items[i].Identity().value == id
}

// MarshalJSON encodes the set as an array of members.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON decodes an array of members, enforcing set invariants.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var members []T
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	decoded, err := NewSet(members...)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
