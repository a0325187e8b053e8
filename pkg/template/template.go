// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"bytes"
	"io"
)

// Template is an immutable compiled node tree. Once compilation has
// back-patched every block body it is safe to share across concurrent
// renders; all per-render state lives in scopes.
type Template struct {
	name  string
	nodes []Node
}

// Empty is the sentinel used where a sub-template is absent, e.g. the
// inverse of a section without an else branch.
var Empty = &Template{}

func NewTemplate(name string, nodes []Node) *Template {
	return &Template{name: name, nodes: nodes}
}

func (t *Template) Name() string  { return t.name }
func (t *Template) Nodes() []Node { return t.nodes }
func (t *Template) IsEmpty() bool { return len(t.nodes) == 0 }

// Render is the host entry point: value becomes the root scope's data
// value, output goes to w.
func (t *Template) Render(value interface{}, w io.Writer) error {
	if err := t.Eval(NewScope(value), w); err != nil {
		return EvalError{TemplateName: t.name, Err: err}
	}
	return nil
}

func (t *Template) RenderString(value interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Render(value, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Eval walks the node list against an existing scope; helpers use this
// to evaluate bound bodies against derived scopes.
func (t *Template) Eval(scope *Scope, w io.Writer) error {
	for _, node := range t.nodes {
		if err := evalNode(node, scope, w); err != nil {
			return err
		}
	}
	return nil
}

// evalNode drives the lifecycle: Before, Merge, then After -- with After
// guaranteed once Before succeeded, merge failure or not, so block
// bookkeeping is always unwound.
func evalNode(node Node, scope *Scope, w io.Writer) error {
	if err := node.Before(scope, w); err != nil {
		return err
	}
	mergeErr := node.Merge(scope, w)
	afterErr := node.After(scope, w)
	if mergeErr != nil {
		return mergeErr
	}
	return afterErr
}

// Text reconstructs the original-ish source of the whole tree.
func (t *Template) Text() string {
	var text string
	for _, node := range t.nodes {
		text += node.Text()
	}
	return text
}

// Collect gathers every tag name of the given classification anywhere in
// the tree, first-seen order, no duplicates.
func (t *Template) Collect(tagType TagType) []string {
	acc := newOrderedSet()
	t.collectTags(acc, tagType)
	return acc.items
}

// CollectReferenceParameters gathers every positional or hash argument
// that references a name (as opposed to a literal), anywhere in the tree.
func (t *Template) CollectReferenceParameters() []string {
	acc := newOrderedSet()
	t.collectRefParams(acc)
	return acc.items
}

func (t *Template) collectTags(acc *orderedSet, tagType TagType) {
	for _, node := range t.nodes {
		node.collectTags(acc, tagType)
	}
}

func (t *Template) collectRefParams(acc *orderedSet) {
	for _, node := range t.nodes {
		node.collectRefParams(acc)
	}
}
