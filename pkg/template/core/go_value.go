// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"reflect"

	"carvel.dev/stencil/pkg/orderedmap"
	"github.com/k14s/starlark-go/starlark"
)

type GoValueToStarlarkValueConversion interface {
	AsStarlarkValue() starlark.Value
}

type GoValue struct {
	val interface{}
}

func NewGoValue(val interface{}) GoValue {
	return GoValue{val}
}

func (e GoValue) AsStarlarkValue() starlark.Value {
	return e.asStarlarkValue(e.val)
}

func (e GoValue) asStarlarkValue(val interface{}) starlark.Value {
	if obj, ok := val.(GoValueToStarlarkValueConversion); ok {
		return obj.AsStarlarkValue()
	}

	switch typedVal := val.(type) {
	case nil:
		return starlark.None

	case bool:
		return starlark.Bool(typedVal)

	case string:
		return starlark.String(typedVal)

	case int:
		return starlark.MakeInt(typedVal)

	case int64:
		return starlark.MakeInt64(typedVal)

	case uint:
		return starlark.MakeUint(typedVal)

	case uint64:
		return starlark.MakeUint64(typedVal)

	case float64:
		return starlark.Float(typedVal)

	case *orderedmap.Map:
		result := &starlark.Dict{}
		typedVal.Iterate(func(k string, v interface{}) {
			result.SetKey(starlark.String(k), e.asStarlarkValue(v))
		})
		return result

	case map[string]interface{}:
		result := &starlark.Dict{}
		for k, v := range typedVal {
			result.SetKey(starlark.String(k), e.asStarlarkValue(v))
		}
		return result

	case map[interface{}]interface{}:
		result := &starlark.Dict{}
		for k, v := range typedVal {
			result.SetKey(e.asStarlarkValue(k), e.asStarlarkValue(v))
		}
		return result

	case []interface{}:
		return e.listAsStarlarkValue(typedVal)

	case []string:
		vals := make([]interface{}, len(typedVal))
		for i, v := range typedVal {
			vals[i] = v
		}
		return e.listAsStarlarkValue(vals)

	default:
		return e.reflectedAsStarlarkValue(val)
	}
}

// reflectedAsStarlarkValue covers data values outside the common concrete
// types: structs (and pointers to them) become dicts keyed by exported
// field name, matching how scope lookup reads them; remaining slices,
// maps and numeric kinds convert element-wise.
func (e GoValue) reflectedAsStarlarkValue(val interface{}) starlark.Value {
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return starlark.None
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return starlark.Bool(rv.Bool())

	case reflect.String:
		return starlark.String(rv.String())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float())

	case reflect.Slice, reflect.Array:
		vals := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			vals[i] = rv.Index(i).Interface()
		}
		return e.listAsStarlarkValue(vals)

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			result := &starlark.Dict{}
			for _, key := range rv.MapKeys() {
				result.SetKey(starlark.String(key.String()),
					e.asStarlarkValue(rv.MapIndex(key).Interface()))
			}
			return result
		}

	case reflect.Struct:
		result := &starlark.Dict{}
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if len(field.PkgPath) > 0 { // unexported
				continue
			}
			result.SetKey(starlark.String(field.Name),
				e.asStarlarkValue(rv.Field(i).Interface()))
		}
		return result
	}

	panic(fmt.Sprintf("unknown type %T for conversion to starlark value", val))
}

func (e GoValue) listAsStarlarkValue(val []interface{}) *starlark.List {
	result := []starlark.Value{}
	for _, v := range val {
		result = append(result, e.asStarlarkValue(v))
	}
	return starlark.NewList(result)
}
