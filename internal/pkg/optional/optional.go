// Package optional provides a value wrapper that remembers whether it was explicitly assigned.
//
// Used by partial-update request models: a field that was never assigned is left untouched,
// while a field assigned to null (for pointer types) means "clear".
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a T together with an "explicitly set" flag.
// The zero value is unset.
type Value[T any] struct {
	value T
	set   bool
}

// Of returns a set value.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// Set assigns v and marks the value as set.
func (v *Value[T]) Set(x T) {
	v.value = x
	v.set = true
}

// Unset clears the value and the flag.
func (v *Value[T]) Unset() {
	var zero T
	v.value = zero
	v.set = false
}

// IsSet reports whether the value was explicitly assigned.
func (v Value[T]) IsSet() bool {
	return v.set
}

// Get returns the value and the set flag.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

// OrElse returns the value when set, def otherwise.
func (v Value[T]) OrElse(def T) T {
	if v.set {
		return v.value
	}
	return def
}

// Any returns the value as interface when set. Used by reflection-based validators.
func (v Value[T]) Any() (any, bool) {
	if !v.set {
		return nil, false
	}
	return v.value, true
}

// MarshalJSON renders unset values as null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON marks the value as set whenever the key is present, including an explicit null.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	var zero T
	v.value = zero
	if !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &v.value); err != nil {
			return err
		}
	}
	v.set = true
	return nil
}
