package operations

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// IsSerializable checks whether a value can be written to a Report as JSON and
// read back without data loss. A value is rejected if it cannot be marshaled
// at all, or if it contains unexported struct fields which json.Marshal would
// silently drop.
func IsSerializable(lggr logger.Logger, v any) bool {
	if v == nil {
		return true
	}

	if _, err := json.Marshal(v); err != nil {
		lggr.Debugw("Value is not JSON marshalable", "error", err)
		return false
	}

	if !isSerializableValue(reflect.ValueOf(v)) {
		lggr.Debugw("Value contains fields that would be lost when marshaled to JSON")
		return false
	}

	return true
}

func isSerializableValue(val reflect.Value) bool {
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface:
		if val.IsNil() {
			return true
		}

		return isSerializableValue(val.Elem())
	case reflect.Struct:
		// Types with custom marshalers control their own wire form.
		if implementsJSONMarshaler(val.Type()) {
			return true
		}
		for i := range val.NumField() {
			if !val.Type().Field(i).IsExported() {
				return false
			}
			if !isSerializableValue(val.Field(i)) {
				return false
			}
		}

		return true
	case reflect.Slice, reflect.Array:
		for i := range val.Len() {
			if !isSerializableValue(val.Index(i)) {
				return false
			}
		}

		return true
	case reflect.Map:
		iter := val.MapRange()
		for iter.Next() {
			if !isSerializableValue(iter.Value()) {
				return false
			}
		}

		return true
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

func implementsJSONMarshaler(t reflect.Type) bool {
	return t.Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(jsonMarshalerType)
}

// constructUniqueHashFrom computes a stable hash for a definition and input
// pair. The hash identifies a prior execution of the same operation with the
// same input so it can be skipped. Results are memoized in cache to avoid
// repeat sha256 computation across report scans.
func constructUniqueHashFrom(cache *sync.Map, def Definition, input any) (string, error) {
	payload, err := json.Marshal(struct {
		Def   Definition `json:"def"`
		Input any        `json:"input"`
	}{Def: def, Input: input})
	if err != nil {
		return "", err
	}

	key := string(payload)
	if hash, ok := cache.Load(key); ok {
		return hash.(string), nil
	}

	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	cache.Store(key, hash)

	return hash, nil
}
