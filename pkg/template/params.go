// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"reflect"
	"strings"

	"carvel.dev/stencil/pkg/orderedmap"
)

// Ref is a positional or hash argument that names a value to resolve
// against the scope in effect.
type Ref string

// Str is a quoted string literal argument; it resolves to itself.
type Str string

// Other literal arguments (int, float64, bool) are carried as plain Go
// values.

func resolveParam(scope *Scope, param interface{}) (interface{}, error) {
	switch typedParam := param.(type) {
	case Ref:
		val, _, err := scope.Resolve(string(typedParam))
		return val, err
	case Str:
		return string(typedParam), nil
	default:
		return param, nil
	}
}

func resolveParams(scope *Scope, params []interface{}) ([]interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}
	resolved := make([]interface{}, len(params))
	for i, param := range params {
		val, err := resolveParam(scope, param)
		if err != nil {
			return nil, err
		}
		resolved[i] = val
	}
	return resolved, nil
}

func resolveHash(scope *Scope, hash *orderedmap.Map) (*orderedmap.Map, error) {
	resolved := orderedmap.NewMap()
	var resolveErr error
	hash.Iterate(func(key string, val interface{}) {
		if resolveErr != nil {
			return
		}
		resolvedVal, err := resolveParam(scope, val)
		if err != nil {
			resolveErr = err
			return
		}
		resolved.Set(key, resolvedVal)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return resolved, nil
}

func paramText(param interface{}) string {
	switch typedParam := param.(type) {
	case Ref:
		return string(typedParam)
	case Str:
		return fmt.Sprintf("%q", string(typedParam))
	default:
		return fmt.Sprintf("%v", param)
	}
}

func paramsText(params []interface{}) string {
	var pieces []string
	for _, param := range params {
		pieces = append(pieces, paramText(param))
	}
	return strings.Join(pieces, " ")
}

func hashText(hash *orderedmap.Map) string {
	var pieces []string
	hash.Iterate(func(key string, val interface{}) {
		pieces = append(pieces, fmt.Sprintf("%s=%s", key, paramText(val)))
	})
	return strings.Join(pieces, " ")
}

// Falsy reports whether a value is empty in the handlebars sense: absent,
// false, zero, an empty string, or an empty sequence/mapping.
func Falsy(val interface{}) bool {
	switch typedVal := val.(type) {
	case nil:
		return true
	case bool:
		return !typedVal
	case string:
		return len(typedVal) == 0
	case *orderedmap.Map:
		return typedVal.Len() == 0
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// sameValue reports whether two data values are the same without risking
// a panic on uncomparable types: reference kinds compare by identity.
func sameValue(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Map, reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return av.Pointer() == bv.Pointer()
	case reflect.Slice:
		if av.Len() != bv.Len() {
			return false
		}
		return av.Len() == 0 || av.Pointer() == bv.Pointer()
	default:
		return a == b
	}
}

func isSequence(val interface{}) bool {
	if val == nil {
		return false
	}
	if _, isStr := val.(string); isStr {
		return false
	}
	switch reflect.ValueOf(val).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
