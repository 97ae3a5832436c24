package netcdf

import (
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// flatten converts an arbitrarily nested numeric slice (as returned by the
// NetCDF library) into its shape and a flat row-major float64 slice.
func flatten(val any) (shape []int, data []float64, err error) {
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Slice {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	data = make([]float64, 0, n)
	if err := appendFlat(reflect.ValueOf(val), len(shape), &data); err != nil {
		return nil, nil, err
	}
	if len(data) != n {
		return nil, nil, fmt.Errorf("ragged array: got %d values for shape %v", len(data), shape)
	}
	return shape, data, nil
}

func appendFlat(rv reflect.Value, depth int, out *[]float64) error {
	if depth == 0 {
		v, err := numeric(rv)
		if err != nil {
			return err
		}
		*out = append(*out, v)
		return nil
	}
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("expected slice at depth %d, got %s", depth, rv.Kind())
	}
	for i := 0; i < rv.Len(); i++ {
		if err := appendFlat(rv.Index(i), depth-1, out); err != nil {
			return err
		}
	}
	return nil
}

func numeric(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(rv.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("non-numeric element of kind %s", rv.Kind())
	}
}

// nest rebuilds the nested slice representation the NetCDF writer expects,
// single-precision when asked.
func nest(data []float64, shape []int, single bool) any {
	elem := reflect.TypeOf(float64(0))
	if single {
		elem = reflect.TypeOf(float32(0))
	}
	t := elem
	for range shape {
		t = reflect.SliceOf(t)
	}
	pos := 0
	return buildNested(t, shape, data, &pos, single).Interface()
}

func buildNested(t reflect.Type, shape []int, data []float64, pos *int, single bool) reflect.Value {
	if len(shape) == 0 {
		v := data[*pos]
		*pos++
		if single {
			return reflect.ValueOf(float32(v))
		}
		return reflect.ValueOf(v)
	}
	out := reflect.MakeSlice(t, shape[0], shape[0])
	for i := 0; i < shape[0]; i++ {
		out.Index(i).Set(buildNested(t.Elem(), shape[1:], data, pos, single))
	}
	return out
}

// attrsToMap converts a NetCDF attribute map into plain strings. Non-string
// values are formatted; list values keep their Go formatting.
func attrsToMap(am api.AttributeMap) map[string]string {
	out := map[string]string{}
	if am == nil {
		return out
	}
	for _, key := range am.Keys() {
		val, has := am.Get(key)
		if !has {
			continue
		}
		if s, ok := val.(string); ok {
			out[key] = s
			continue
		}
		out[key] = fmt.Sprint(val)
	}
	return out
}

// attrFloat extracts a numeric attribute value, used for packing attributes
// (scale_factor, add_offset, _FillValue) before they are stripped.
func attrFloat(am api.AttributeMap, key string) (float64, bool) {
	if am == nil {
		return 0, false
	}
	val, has := am.Get(key)
	if !has {
		return 0, false
	}
	rv := reflect.ValueOf(val)
	// Scalar attributes sometimes arrive as single-element slices.
	if rv.Kind() == reflect.Slice && rv.Len() == 1 {
		rv = rv.Index(0)
	}
	f, err := numeric(rv)
	if err != nil {
		return 0, false
	}
	return f, true
}
