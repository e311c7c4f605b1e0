package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// FromGo converts a plain Go value (as produced by encoding/json, yaml.v3 or
// mapstructure) into an IRValue.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case json.Number:
		s := string(val)
		if !strings.ContainsAny(s, ".eE") {
			n, err := val.Int64()
			if err != nil {
				return nil, fmt.Errorf("number out of int64 range: %s", s)
			}
			return IRInt(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", s, err)
		}
		return checkFloat(f)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	}
	return fromReflect(reflect.ValueOf(v))
}

// fromReflect covers typed slices and maps such as []string or
// map[string]float64 that concept code returns.
func fromReflect(rv reflect.Value) (IRValue, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		arr := make(IRArray, rv.Len())
		for i := range arr {
			elem, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type: %s", rv.Type().Key())
		}
		obj := make(IRObject, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem, err := FromGo(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", iter.Key().String(), err)
			}
			obj[iter.Key().String()] = elem
		}
		return obj, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return IRNull{}, nil
		}
		return FromGo(rv.Elem().Interface())
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

func checkFloat(f float64) (IRValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v", f)
	}
	return IRFloat(f), nil
}

// ObjectFromGo converts a map into an IRObject.
func ObjectFromGo(m map[string]any) (IRObject, error) {
	v, err := FromGo(m)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return IRObject{}, nil
	}
	return v.(IRObject), nil
}

// ToGo converts an IRValue into plain Go values: nil, string, int64,
// float64, bool, []any and map[string]any.
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports structural equality. Numbers compare by value across IRInt
// and IRFloat; a nil IRValue equals IRNull.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case nil, IRNull:
		switch b.(type) {
		case nil, IRNull:
			return true
		}
		return false
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRInt:
		switch bv := b.(type) {
		case IRInt:
			return av == bv
		case IRFloat:
			return float64(av) == float64(bv)
		}
		return false
	case IRFloat:
		switch bv := b.(type) {
		case IRFloat:
			return av == bv
		case IRInt:
			return float64(av) == float64(bv)
		}
		return false
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// AsFloat returns the numeric value of an IRInt or IRFloat.
func AsFloat(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRFloat:
		return float64(n), true
	}
	return 0, false
}
