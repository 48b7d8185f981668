package helpers

import "reflect"

// InstanceOf returns a new instance of T. If T is a pointer type, the
// pointed-to struct is allocated so the result is never a nil pointer.
func InstanceOf[T any]() T {
	var empty T
	t := reflect.TypeOf(empty)
	if t == nil || t.Kind() != reflect.Ptr {
		return empty
	}
	return reflect.New(t.Elem()).Interface().(T)
}
