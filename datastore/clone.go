package datastore

import (
	"bytes"
	"encoding/json"
)

// clone deep-copies v through a JSON round trip. Stores hand out clones so
// callers cannot mutate the data they hold.
func clone[T any](v T) (T, error) {
	var zero T
	b, err := json.Marshal(v)
	if err != nil {
		return zero, err
	}

	// UseNumber keeps large integers intact instead of degrading them to
	// float64 on decode.
	var cloned T
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err = decoder.Decode(&cloned); err != nil {
		return zero, err
	}

	return cloned, nil
}
