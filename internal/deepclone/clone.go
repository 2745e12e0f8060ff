// Package deepclone produces owned copies of arbitrary values so that a
// copy-on-write promotion never aliases the storage of the value it was
// derived from. Pointers, maps, slices, and nested structs are copied
// recursively; unexported struct fields are carried over by shallow copy
// because they cannot be set individually through reflection.
package deepclone

import "reflect"

// Value returns a deep copy of v. Scalars are returned as-is; composite
// kinds are reallocated so the result shares no mutable storage with v.
func Value[T any](v T) T {
	cloned := cloneValue(reflect.ValueOf(v))
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	out, ok := cloned.Interface().(T)
	if !ok {
		var zero T
		return zero
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		// Seed with a shallow copy so unexported fields survive; only the
		// settable fields can then be deep-copied individually.
		if v.CanInterface() {
			clone.Set(v)
		}
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return reflect.ValueOf(v.Interface())
	}
}
