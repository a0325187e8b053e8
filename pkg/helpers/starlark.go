// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package helpers

import (
	"fmt"

	"carvel.dev/stencil/pkg/template"
	"carvel.dev/stencil/pkg/template/core"
	"github.com/k14s/starlark-go/resolve"
	"github.com/k14s/starlark-go/starlark"
)

func init() {
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowLambda = true
	resolve.AllowNestedDef = true
	resolve.AllowRecursion = true
}

// StarlarkHelper is a helper authored in Starlark. The script must define
// a function of the helper's name taking (value, *params, **hash); its
// return value becomes the rendered fragment (None renders nothing).
type StarlarkHelper struct {
	name string
	fn   starlark.Callable
}

var _ template.Helper = &StarlarkHelper{}

// predeclared names available to every helper script
var starlarkEnv = starlark.StringDict{
	"falsy": starlark.NewBuiltin("falsy", core.ErrWrapper(starlarkFalsy)),
}

func starlarkFalsy(thread *starlark.Thread, f *starlark.Builtin,
	args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {

	if args.Len() != 1 || len(kwargs) > 0 {
		return nil, fmt.Errorf("expected exactly one argument")
	}
	return starlark.Bool(template.Falsy(core.NewStarlarkValue(args.Index(0)).AsGoValue())), nil
}

// NewStarlarkHelper compiles src once; each Apply runs the compiled
// function on a fresh thread. Scripts see the engine's emptiness rules
// as a predeclared falsy(value) function.
func NewStarlarkHelper(name, src string) (*StarlarkHelper, error) {
	thread := &starlark.Thread{Name: "stencil-helper-" + name}
	globals, err := starlark.ExecFile(thread, name+".star", src, starlarkEnv)
	if err != nil {
		return nil, fmt.Errorf("Compiling starlark helper '%s': %s", name, err)
	}

	val, found := globals[name]
	if !found {
		return nil, fmt.Errorf("Expected starlark helper source to define function '%s'", name)
	}
	fn, isCallable := val.(starlark.Callable)
	if !isCallable {
		return nil, fmt.Errorf("Expected '%s' to be a function, but was %s", name, val.Type())
	}
	return &StarlarkHelper{name: name, fn: fn}, nil
}

func (h *StarlarkHelper) Apply(value interface{}, opts *template.Options) (result string, resultErr error) {
	// value conversion panics on unconvertible kinds; surface those as
	// helper errors rather than crashing the render
	defer func() {
		if r := recover(); r != nil {
			resultErr = fmt.Errorf("Calling starlark helper '%s': %v", h.name, r)
		}
	}()

	args := starlark.Tuple{core.NewGoValue(value).AsStarlarkValue()}
	if len(opts.Params) > 1 {
		// params[0] already arrived as the context value
		for _, param := range opts.Params[1:] {
			args = append(args, core.NewGoValue(param).AsStarlarkValue())
		}
	}

	var kwargs []starlark.Tuple
	opts.Hash.Iterate(func(k string, v interface{}) {
		kwargs = append(kwargs, starlark.Tuple{
			starlark.String(k), core.NewGoValue(v).AsStarlarkValue()})
	})

	thread := &starlark.Thread{Name: "stencil-helper-" + h.name}
	retVal, err := starlark.Call(thread, h.fn, args, kwargs)
	if err != nil {
		return "", fmt.Errorf("Calling starlark helper '%s': %s", h.name, err)
	}

	switch typedResult := retVal.(type) {
	case starlark.NoneType:
		return "", nil
	case starlark.String:
		return string(typedResult), nil
	default:
		return fmt.Sprintf("%v", core.NewStarlarkValue(retVal).AsGoValue()), nil
	}
}
