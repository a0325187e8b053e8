// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package helpers

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"carvel.dev/stencil/pkg/orderedmap"
	"carvel.dev/stencil/pkg/template"
)

// Register installs the builtin helpers the block merge algorithm
// selects implicitly.
func Register(registry *template.Registry) {
	registry.Register(template.EachHelperName, template.HelperFunc(eachHelper))
	registry.Register(template.IfHelperName, template.HelperFunc(ifHelper))
	registry.Register(template.UnlessHelperName, template.HelperFunc(unlessHelper))
	registry.Register(template.WithHelperName, template.HelperFunc(withHelper))
}

// eachHelper renders the body once per element of a sequence or mapping,
// binding block params to (item, index|key) and publishing @index, @key,
// @first and @last side-channel values. An empty or absent value renders
// the inverse.
func eachHelper(value interface{}, opts *template.Options) (string, error) {
	if value == nil {
		return opts.Inverse()
	}

	switch typedVal := value.(type) {
	case *orderedmap.Map:
		return eachPairs(orderedPairs(typedVal), opts)
	case map[string]interface{}:
		return eachPairs(sortedPairs(typedVal), opts)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return opts.Inverse()
		}
		var sb strings.Builder
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			out, err := applyItem(opts, item, i, fmt.Sprintf("%d", i), i == 0, i == rv.Len()-1)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("expected a sequence or mapping, but was %T", value)
}

type pair struct {
	key string
	val interface{}
}

func orderedPairs(m *orderedmap.Map) []pair {
	var pairs []pair
	m.Iterate(func(k string, v interface{}) { pairs = append(pairs, pair{k, v}) })
	return pairs
}

// plain Go maps have no stable order; sort keys so renders stay
// deterministic
func sortedPairs(m map[string]interface{}) []pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, pair{k, m[k]})
	}
	return pairs
}

func eachPairs(pairs []pair, opts *template.Options) (string, error) {
	if len(pairs) == 0 {
		return opts.Inverse()
	}
	var sb strings.Builder
	for i, p := range pairs {
		out, err := applyItem(opts, p.val, i, p.key, i == 0, i == len(pairs)-1)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func applyItem(opts *template.Options, item interface{}, index int, key string,
	first, last bool) (string, error) {

	scope := opts.Scope.Child(item)
	if len(opts.BlockParams) > 0 {
		bindings := map[string]interface{}{opts.BlockParams[0]: item}
		if len(opts.BlockParams) > 1 {
			bindings[opts.BlockParams[1]] = index
		}
		scope = scope.Extend(bindings)
	}
	scope.SetData("@index", index)
	scope.SetData("@key", key)
	scope.SetData("@first", first)
	scope.SetData("@last", last)
	return opts.ApplyWithScope(opts.Body(), scope)
}

// ifHelper renders the body for truthy values, the inverse otherwise.
func ifHelper(value interface{}, opts *template.Options) (string, error) {
	if opts.Falsy(value) {
		return opts.Inverse()
	}
	return opts.Fn()
}

// unlessHelper negates ifHelper.
func unlessHelper(value interface{}, opts *template.Options) (string, error) {
	if opts.Falsy(value) {
		return opts.Fn()
	}
	return opts.Inverse()
}

// withHelper rebinds the scope to the value for the body, or renders the
// inverse when it is empty. The first block param, if any, names the
// value.
func withHelper(value interface{}, opts *template.Options) (string, error) {
	if opts.Falsy(value) {
		return opts.Inverse()
	}
	return opts.Apply(opts.Body(), value, []interface{}{value})
}
