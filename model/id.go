package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a store-assigned entity identity. The zero value is the "not yet
// persisted" state and is distinct from every assigned identity.
type ID struct {
	value int64
	valid bool
}

// NewID returns an assigned identity.
func NewID(v int64) ID {
	return ID{value: v, valid: true}
}

// NoID returns the absent identity.
func NoID() ID {
	return ID{}
}

// Valid reports whether an identity has been assigned.
func (id ID) Valid() bool {
	return id.valid
}

// Int64 returns the identity value and whether it is assigned.
func (id ID) Int64() (int64, bool) {
	return id.value, id.valid
}

// MustInt64 returns the identity value, panicking when it is absent.
func (id ID) MustInt64() int64 {
	if !id.valid {
		panic("model: identity not assigned")
	}
	return id.value
}

// Equal reports whether both identities are assigned and match.
// An absent identity is never equal to anything, itself included.
func (id ID) Equal(other ID) bool {
	return id.valid && other.valid && id.value == other.value
}

func (id ID) String() string {
	if !id.valid {
		return "<none>"
	}
	return strconv.FormatInt(id.value, 10)
}

// MarshalJSON encodes an absent identity as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.value, 10)), nil
}

// UnmarshalJSON accepts null or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*id = ID{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*id = NewID(v)
	return nil
}
