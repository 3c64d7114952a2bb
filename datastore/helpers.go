package datastore

import (
	"bytes"
	"encoding/json"
)

// As converts a metadata value of type any to the concrete type T using JSON
// serialization. It returns an error if the value does not marshal into T.
func As[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}

	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err = decoder.Decode(&out); err != nil {
		return out, err
	}

	return out, nil
}
