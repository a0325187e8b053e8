// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"sort"
)

// Names of helpers the block merge algorithm selects implicitly, plus the
// fallback consulted when a referenced name resolves to nothing.
const (
	EachHelperName   = "each"
	IfHelperName     = "if"
	UnlessHelperName = "unless"
	WithHelperName   = "with"
	HelperMissing    = "helperMissing"
)

// Helper renders a section (or variable) given the resolved context value
// and the per-invocation options bundle. Returning an empty string renders
// nothing; that is not an error.
type Helper interface {
	Apply(value interface{}, opts *Options) (string, error)
}

// HelperFunc adapts a plain function into a Helper.
type HelperFunc func(value interface{}, opts *Options) (string, error)

func (f HelperFunc) Apply(value interface{}, opts *Options) (string, error) {
	return f(value, opts)
}

// Registry maps helper names to helpers. It is owned by the host and
// passed explicitly to both the compiler and the renderer; blocks bind
// their declared name against it once, at construction time.
type Registry struct {
	helpers      map[string]Helper
	transformers []Transformer
}

func NewRegistry() *Registry {
	return &Registry{
		helpers:      map[string]Helper{},
		transformers: []Transformer{funcTransformer{}},
	}
}

// Register binds a helper under a case-sensitive name, replacing any
// previous binding. Replacement affects only templates compiled
// afterwards.
func (r *Registry) Register(name string, helper Helper) {
	r.helpers[name] = helper
}

func (r *Registry) RegisterFunc(name string, f HelperFunc) {
	r.Register(name, f)
}

func (r *Registry) Lookup(name string) (Helper, bool) {
	helper, found := r.helpers[name]
	return helper, found
}

func (r *Registry) Names() []string {
	var names []string
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTransformer appends a value-transform step applied to every value
// resolved for a section before helper inference.
func (r *Registry) AddTransformer(t Transformer) {
	r.transformers = append(r.transformers, t)
}

func (r *Registry) Transform(val interface{}) interface{} {
	for _, t := range r.transformers {
		val = t.Transform(val)
	}
	return val
}
