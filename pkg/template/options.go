// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"bytes"
	"io"

	"carvel.dev/stencil/pkg/orderedmap"
)

// Options is the immutable per-invocation bundle handed to a helper:
// the tag's identity, the scope in effect, resolved arguments, the bound
// body and inverse sub-templates, and the output sink. It is assembled
// once per merge and discarded after the helper returns.
type Options struct {
	Name        string
	TagType     TagType
	Scope       *Scope
	Params      []interface{}
	Hash        *orderedmap.Map
	BlockParams []string

	body     *Template
	inverse  *Template
	writer   io.Writer
	registry *Registry
}

// NewOptions exists for hosts and tests; nodes assemble Options directly.
func NewOptions(registry *Registry, name string, tagType TagType, scope *Scope,
	params []interface{}, hash *orderedmap.Map, blockParams []string,
	body, inverse *Template, writer io.Writer) *Options {

	return &Options{Name: name, TagType: tagType, Scope: scope,
		Params: params, Hash: hash, BlockParams: blockParams,
		body: body, inverse: inverse, writer: writer, registry: registry}
}

func (o *Options) Body() *Template            { return o.body }
func (o *Options) InverseTemplate() *Template { return o.inverse }
func (o *Options) Registry() *Registry        { return o.registry }

// Fn evaluates the body against the scope in effect.
func (o *Options) Fn() (string, error) {
	return o.ApplyWithScope(o.body, o.Scope)
}

// Inverse evaluates the else branch against the scope in effect.
func (o *Options) Inverse() (string, error) {
	return o.ApplyWithScope(o.inverse, o.Scope)
}

// Apply evaluates a template against value. A new child scope is derived
// only when value differs from the current scope's own data value, so a
// helper re-applying the value the block already entered does not nest
// twice. Bindings are bound positionally to the block-parameter names.
func (o *Options) Apply(t *Template, value interface{}, bindings []interface{}) (string, error) {
	scope := o.Scope
	if !sameValue(scope.Self(), value) {
		scope = scope.Child(value)
	}
	scope = o.bindBlockParams(scope, bindings)
	return o.ApplyWithScope(t, scope)
}

// ApplyWithScope evaluates a template against an explicitly built scope.
func (o *Options) ApplyWithScope(t *Template, scope *Scope) (string, error) {
	if t == nil || t.IsEmpty() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.Eval(scope, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (o *Options) bindBlockParams(scope *Scope, bindings []interface{}) *Scope {
	if len(bindings) == 0 || len(o.BlockParams) == 0 {
		return scope
	}
	bound := map[string]interface{}{}
	for i, name := range o.BlockParams {
		if i < len(bindings) {
			bound[name] = bindings[i]
		}
	}
	return scope.Extend(bound)
}

// Param returns the i-th resolved positional argument, or nil.
func (o *Options) Param(i int) interface{} {
	if i < 0 || i >= len(o.Params) {
		return nil
	}
	return o.Params[i]
}

// ParamSize is the count of positional arguments the template author
// literally declared on the tag, read back from side-channel scope data.
// It lets a variadic helper tell "no arguments" apart from "one argument
// that resolved to the same value".
func (o *Options) ParamSize() int {
	if v, found := o.Scope.Data(dataParamSize); found {
		if size, isInt := v.(int); isInt {
			return size
		}
	}
	return len(o.Params)
}

// HashValue returns the resolved named argument, or nil.
func (o *Options) HashValue(key string) interface{} {
	val, _ := o.Hash.Get(key)
	return val
}

func (o *Options) HashOr(key string, defaultVal interface{}) interface{} {
	if val, found := o.Hash.Get(key); found {
		return val
	}
	return defaultVal
}

// Write bypasses the returned-fragment path and appends directly to the
// output sink.
func (o *Options) Write(s string) error {
	_, err := io.WriteString(o.writer, s)
	return err
}

// Falsy applies the engine's emptiness rules; exposed here so helpers
// share one definition.
func (o *Options) Falsy(val interface{}) bool { return Falsy(val) }
