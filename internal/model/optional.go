package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sakif/photolog/internal/apperror"
)

// Optional marks a field of a partial-update payload as present or absent.
//
// PRESENT vs NULL vs ABSENT:
// A plain pointer cannot tell "the client sent null" apart from "the client
// did not send the field". Optional can:
//
//	{}                 → Set=false              (leave the stored value alone)
//	{"caption": null}  → Set=true, Value=nil    (clear it)
//	{"caption": "hi"}  → Set=true, Value=&"hi"  (replace it)
//
// encoding/json only calls UnmarshalJSON for keys that appear in the
// document, which is what makes Set reliable.
//
// Null records an explicit null. For non-pointer T the decoder leaves Value
// at its zero value, so fields that cannot be cleared must reject it (see
// NotNull).
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// NotNull fails with a validation error when the field was sent as null.
func (o Optional[T]) NotNull(field string) error {
	if o.Set && o.Null {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must not be null", field))
	}
	return nil
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Null = bytes.Equal(bytes.TrimSpace(data), []byte("null"))
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
