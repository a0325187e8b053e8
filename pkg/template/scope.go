// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"reflect"
	"strings"

	"carvel.dev/stencil/pkg/orderedmap"
)

const (
	parentSegment = "../"

	// side-channel key carrying the count of positional params declared
	// on the section that invoked the current helper
	dataParamSize = "paramSize"
)

// Scope is one link of the lookup chain: a data value, a parent link, and
// a side-channel store kept apart from the data value's own namespace.
// Scopes are derived, never edited in place; the side-channel store and
// the inline-partial stack are the sanctioned exceptions.
type Scope struct {
	self     interface{}
	parent   *Scope
	bindings map[string]interface{}
	data     map[string]interface{}
	partials *PartialStack
}

// NewScope starts a chain with self as the root data value.
func NewScope(self interface{}) *Scope {
	return &Scope{self: self, partials: NewPartialStack()}
}

// Child derives a scope whose lookups fall through to the current one.
func (s *Scope) Child(self interface{}) *Scope {
	return &Scope{self: self, parent: s, partials: s.partials}
}

// Extend derives a scope at the same chain depth with block-parameter
// bindings attached. Bindings shadow fields of self during lookup.
func (s *Scope) Extend(bindings map[string]interface{}) *Scope {
	merged := map[string]interface{}{}
	for k, v := range s.bindings {
		merged[k] = v
	}
	for k, v := range bindings {
		merged[k] = v
	}
	return &Scope{self: s.self, parent: s.parent, bindings: merged,
		data: s.data, partials: s.partials}
}

func (s *Scope) Self() interface{} { return s.self }
func (s *Scope) Parent() *Scope    { return s.parent }

// Data reads side-channel state, falling back to ancestor scopes.
func (s *Scope) Data(key string) (interface{}, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, found := sc.data[key]; found {
			return v, true
		}
	}
	return nil, false
}

// SetData writes side-channel state on this scope only.
func (s *Scope) SetData(key string, val interface{}) {
	if s.data == nil {
		s.data = map[string]interface{}{}
	}
	s.data[key] = val
}

// InlinePartials is the per-render stack of inline partial definitions,
// shared by every scope of the chain.
func (s *Scope) InlinePartials() *PartialStack { return s.partials }

// Resolve looks a path up in the chain. Leading "../" segments navigate to
// parent scopes (erroring loudly past the root); "@" names read the
// side-channel store; the first plain segment consults block-parameter
// bindings before self's own fields and, for non-local paths, ancestor
// scopes. An absent name is not an error: found is false.
func (s *Scope) Resolve(path string) (val interface{}, found bool, err error) {
	cur := s
	rest := path
	localOnly := false

	for strings.HasPrefix(rest, parentSegment) {
		if cur.parent == nil {
			return nil, false, NewResolutionError(path)
		}
		cur = cur.parent
		rest = rest[len(parentSegment):]
		localOnly = true
	}

	switch {
	case rest == "" || rest == "." || rest == "this":
		return cur.self, true, nil
	case strings.HasPrefix(rest, "./"):
		rest = rest[2:]
		localOnly = true
	case strings.HasPrefix(rest, "this."):
		rest = rest[len("this."):]
		localOnly = true
	}

	segments := splitPath(rest)

	if strings.HasPrefix(segments[0], "@") {
		v, ok := cur.Data(segments[0])
		if !ok {
			return nil, false, nil
		}
		return resolveSegments(v, segments[1:])
	}

	for sc := cur; sc != nil; sc = sc.parent {
		if v, ok := sc.lookupLocal(segments[0]); ok {
			return resolveSegments(v, segments[1:])
		}
		if localOnly {
			break
		}
	}
	return nil, false, nil
}

func (s *Scope) lookupLocal(name string) (interface{}, bool) {
	if v, found := s.bindings[name]; found {
		return v, true
	}
	return fieldOf(s.self, name)
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '/' })
}

func resolveSegments(val interface{}, segments []string) (interface{}, bool, error) {
	for _, name := range segments {
		v, found := fieldOf(val, name)
		if !found {
			return nil, false, nil
		}
		val = v
	}
	return val, true, nil
}

// fieldOf reads one named field/key out of an opaque data value: string
// maps, ordered maps, and exported struct fields (directly or through
// pointers).
func fieldOf(val interface{}, name string) (interface{}, bool) {
	switch typedVal := val.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		v, found := typedVal[name]
		return v, found
	case map[interface{}]interface{}:
		v, found := typedVal[name]
		return v, found
	case *orderedmap.Map:
		return typedVal.Get(name)
	}

	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		field := rv.FieldByName(name)
		if !field.IsValid() && len(name) > 0 {
			// allow lowercase template references to exported fields
			field = rv.FieldByName(strings.ToUpper(name[:1]) + name[1:])
		}
		if field.IsValid() && field.CanInterface() {
			return field.Interface(), true
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name))
			if v.IsValid() {
				return v.Interface(), true
			}
		}
	}
	return nil, false
}

// PartialStack scopes inline partial definitions to the block that made
// them: entering a block pushes a copy of the visible set, leaving pops it.
type PartialStack struct {
	frames []map[string]*Template
}

func NewPartialStack() *PartialStack {
	return &PartialStack{frames: []map[string]*Template{{}}}
}

// Push copies the currently visible definitions onto the stack.
func (ps *PartialStack) Push() {
	top := ps.frames[len(ps.frames)-1]
	frame := make(map[string]*Template, len(top))
	for name, tmpl := range top {
		frame[name] = tmpl
	}
	ps.frames = append(ps.frames, frame)
}

func (ps *PartialStack) Pop() {
	if len(ps.frames) == 1 {
		panic("Popping the root inline-partial frame")
	}
	ps.frames = ps.frames[:len(ps.frames)-1]
}

func (ps *PartialStack) Define(name string, tmpl *Template) {
	ps.frames[len(ps.frames)-1][name] = tmpl
}

func (ps *PartialStack) Lookup(name string) (*Template, bool) {
	tmpl, found := ps.frames[len(ps.frames)-1][name]
	return tmpl, found
}

func (ps *PartialStack) Depth() int { return len(ps.frames) }
