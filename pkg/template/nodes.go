// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/stencil/pkg/filepos"
	"carvel.dev/stencil/pkg/orderedmap"
)

// TagType classifies tags for introspection and helper dispatch.
type TagType int

const (
	TagTypeVar TagType = iota
	TagTypeAmpVar
	TagTypeSection
	TagTypePartial
)

func (t TagType) String() string {
	switch t {
	case TagTypeVar:
		return "var"
	case TagTypeAmpVar:
		return "&var"
	case TagTypeSection:
		return "section"
	case TagTypePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Node is one compiled template element. Parents drive each child through
// Before, Merge, After in that order; Before/After exist solely to manage
// inline-partial visibility and After runs on every exit path.
//
// The collect methods are unexported on purpose: the node kind set is
// closed, only this package implements it.
type Node interface {
	Before(scope *Scope, w io.Writer) error
	Merge(scope *Scope, w io.Writer) error
	After(scope *Scope, w io.Writer) error
	Text() string
	Position() *filepos.Position

	collectTags(acc *orderedSet, tagType TagType)
	collectRefParams(acc *orderedSet)
}

var _ = []Node{&TextNode{}, &CommentNode{}, &VariableNode{}, &PartialNode{}, &Block{}}

// orderedSet de-duplicates while preserving first-seen order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) Add(name string) {
	if _, dup := s.seen[name]; dup {
		return
	}
	s.seen[name] = struct{}{}
	s.items = append(s.items, name)
}

func collectParamRefs(acc *orderedSet, params []interface{}, hash *orderedmap.Map) {
	for _, param := range params {
		if ref, isRef := param.(Ref); isRef {
			acc.Add(string(ref))
		}
	}
	hash.Iterate(func(_ string, val interface{}) {
		if ref, isRef := val.(Ref); isRef {
			acc.Add(string(ref))
		}
	})
}

// TextNode is literal template text.
type TextNode struct {
	pos     *filepos.Position
	content string
}

func NewTextNode(content string, pos *filepos.Position) *TextNode {
	return &TextNode{pos: pos, content: content}
}

func (n *TextNode) Before(*Scope, io.Writer) error { return nil }
func (n *TextNode) After(*Scope, io.Writer) error  { return nil }

func (n *TextNode) Merge(_ *Scope, w io.Writer) error {
	_, err := io.WriteString(w, n.content)
	return err
}

func (n *TextNode) Text() string                { return n.content }
func (n *TextNode) Content() string             { return n.content }
func (n *TextNode) Position() *filepos.Position { return n.pos }

func (n *TextNode) collectTags(*orderedSet, TagType) {}
func (n *TextNode) collectRefParams(*orderedSet)     {}

// CommentNode is a no-op at evaluation time; its text survives for
// re-serialization.
type CommentNode struct {
	pos        *filepos.Position
	content    string
	startDelim string
	endDelim   string
}

func NewCommentNode(content, startDelim, endDelim string, pos *filepos.Position) *CommentNode {
	return &CommentNode{pos: pos, content: content, startDelim: startDelim, endDelim: endDelim}
}

func (n *CommentNode) Before(*Scope, io.Writer) error { return nil }
func (n *CommentNode) Merge(*Scope, io.Writer) error  { return nil }
func (n *CommentNode) After(*Scope, io.Writer) error  { return nil }

func (n *CommentNode) Text() string {
	return n.startDelim + "!" + n.content + n.endDelim
}

func (n *CommentNode) Content() string             { return n.content }
func (n *CommentNode) Position() *filepos.Position { return n.pos }

func (n *CommentNode) collectTags(*orderedSet, TagType) {}
func (n *CommentNode) collectRefParams(*orderedSet)     {}

// VariableNode interpolates a value or invokes a helper of the same name
// registered at compile time.
type VariableNode struct {
	pos         *filepos.Position
	name        string
	params      []interface{}
	hash        *orderedmap.Map
	tagType     TagType
	startDelim  string
	endDelim    string
	registry    *Registry
	boundHelper Helper
}

func NewVariableNode(registry *Registry, name string, params []interface{},
	hash *orderedmap.Map, tagType TagType, startDelim, endDelim string,
	pos *filepos.Position) *VariableNode {

	if hash == nil {
		hash = orderedmap.NewMap()
	}
	n := &VariableNode{pos: pos, name: name, params: params, hash: hash,
		tagType: tagType, startDelim: startDelim, endDelim: endDelim, registry: registry}
	n.boundHelper, _ = registry.Lookup(name)
	return n
}

func (n *VariableNode) Before(*Scope, io.Writer) error { return nil }
func (n *VariableNode) After(*Scope, io.Writer) error  { return nil }

func (n *VariableNode) Merge(scope *Scope, w io.Writer) error {
	if n.boundHelper != nil {
		var value interface{}
		if len(n.params) > 0 {
			resolved, err := resolveParam(scope, n.params[0])
			if err != nil {
				return n.annotate(err)
			}
			value = n.registry.Transform(resolved)
		} else {
			value = n.registry.Transform(scope.Self())
		}
		return n.invoke(n.boundHelper, value, scope, w)
	}

	resolved, found, err := scope.Resolve(n.name)
	if err != nil {
		return n.annotate(err)
	}
	value := n.registry.Transform(resolved)

	if !found || value == nil {
		missing, registered := n.registry.Lookup(HelperMissing)
		if !registered {
			return nil
		}
		return n.invoke(missing, nil, scope, w)
	}

	if lambda, isLambda := value.(Lambda); isLambda {
		out, err := lambda.Apply(scope, Empty)
		if err != nil {
			return HelperError{Name: n.name, Pos: n.pos, Err: err}
		}
		_, err = io.WriteString(w, out)
		return err
	}

	_, err = io.WriteString(w, formatValue(value))
	return err
}

func (n *VariableNode) invoke(helper Helper, value interface{}, scope *Scope, w io.Writer) error {
	params, err := resolveParams(scope, n.params)
	if err != nil {
		return n.annotate(err)
	}
	hash, err := resolveHash(scope, n.hash)
	if err != nil {
		return n.annotate(err)
	}
	scope.SetData(dataParamSize, len(n.params))

	opts := &Options{Name: n.name, TagType: n.tagType, Scope: scope,
		Params: params, Hash: hash, body: Empty, inverse: Empty,
		writer: w, registry: n.registry}

	result, err := helper.Apply(value, opts)
	if err != nil {
		return HelperError{Name: n.name, Pos: n.pos, Err: err}
	}
	if len(result) > 0 {
		_, err = io.WriteString(w, result)
	}
	return err
}

func (n *VariableNode) annotate(err error) error {
	if resErr, isRes := err.(ResolutionError); isRes && !resErr.Pos.IsKnown() {
		resErr.Pos = n.pos
		return resErr
	}
	return err
}

func (n *VariableNode) Text() string {
	marker := ""
	if n.tagType == TagTypeAmpVar {
		marker = "&"
	}
	text := n.startDelim + marker + n.name
	if params := paramsText(n.params); len(params) > 0 {
		text += " " + params
	}
	if hash := hashText(n.hash); len(hash) > 0 {
		text += " " + hash
	}
	return text + n.endDelim
}

func (n *VariableNode) Name() string                { return n.name }
func (n *VariableNode) Position() *filepos.Position { return n.pos }

func (n *VariableNode) collectTags(acc *orderedSet, tagType TagType) {
	if tagType == n.tagType {
		acc.Add(n.name)
	}
}

func (n *VariableNode) collectRefParams(acc *orderedSet) {
	collectParamRefs(acc, n.params, n.hash)
}

// PartialNode includes an inline partial visible at this point of
// evaluation.
type PartialNode struct {
	pos        *filepos.Position
	name       string
	startDelim string
	endDelim   string
}

func NewPartialNode(name, startDelim, endDelim string, pos *filepos.Position) *PartialNode {
	return &PartialNode{pos: pos, name: name, startDelim: startDelim, endDelim: endDelim}
}

func (n *PartialNode) Before(*Scope, io.Writer) error { return nil }
func (n *PartialNode) After(*Scope, io.Writer) error  { return nil }

func (n *PartialNode) Merge(scope *Scope, w io.Writer) error {
	tmpl, found := scope.InlinePartials().Lookup(n.name)
	if !found {
		return fmt.Errorf("The partial '%s' could not be found (%s)",
			n.name, n.pos.AsCompactString())
	}
	return tmpl.Eval(scope, w)
}

func (n *PartialNode) Text() string {
	return n.startDelim + ">" + n.name + n.endDelim
}

func (n *PartialNode) Name() string                { return n.name }
func (n *PartialNode) Position() *filepos.Position { return n.pos }

func (n *PartialNode) collectTags(acc *orderedSet, tagType TagType) {
	if tagType == TagTypePartial {
		acc.Add(n.name)
	}
}

func (n *PartialNode) collectRefParams(*orderedSet) {}

func formatValue(val interface{}) string {
	if val == nil {
		return ""
	}
	return fmt.Sprintf("%v", val)
}
