package layer

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Clone returns an alias-free deep copy of a normalized document value.
// Only maps and slices are copied; scalars are immutable.
func Clone(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		if value == nil {
			return []any(nil)
		}
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = Clone(v)
	}
	return out
}

// Normalize converts v into the document representation used by every layer:
// map[string]any, []any, string, bool, int, float64 or nil. Decoder-specific
// types (json.Number, map[any]any from YAML, typed slices from literals) are
// folded into that set; the result never aliases v.
//
// Dotted keys are paths: {"gtag.id": x} becomes {"gtag": {"id": x}} and merges
// with a sibling "gtag" object. A key that is both a value and a parent, such
// as "gtag" and "gtag.id" with a scalar "gtag", fails with ErrKeyConflict.
func Normalize(v any) (any, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, float64:
		return value, nil
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return int(i), nil
		}
		f, err := value.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, value.String())
		}
		return f, nil
	case float32:
		return float64(value), nil
	case time.Time:
		return value.Format(time.RFC3339), nil
	case map[string]any:
		out := make(map[string]any, len(value))
		for _, k := range sortedMapKeys(value) {
			n, err := Normalize(value[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if err := insert(out, k, n); err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	}

	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeReflect(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int(u), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any(nil), nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return Normalize(m)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Type())
}

// insert stores value at the dotted key inside dst, merging objects that meet
// at the same path.
func insert(dst map[string]any, key string, value any) error {
	segments := Split(key)
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}

	current := dst
	for i, seg := range segments[:len(segments)-1] {
		existing, ok := current[seg]
		if !ok {
			next := make(map[string]any)
			current[seg] = next
			current = next
			continue
		}
		next, ok := existing.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q under %q", ErrKeyConflict, key, Join(segments[:i+1]...))
		}
		current = next
	}

	last := segments[len(segments)-1]
	existing, ok := current[last]
	if !ok {
		current[last] = value
		return nil
	}
	existingMap, ok1 := existing.(map[string]any)
	valueMap, ok2 := value.(map[string]any)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: %q", ErrKeyConflict, key)
	}
	for _, k := range sortedMapKeys(valueMap) {
		if err := insert(existingMap, k, valueMap[k]); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
