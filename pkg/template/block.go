// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/stencil/pkg/filepos"
	"carvel.dev/stencil/pkg/orderedmap"
)

// InlineCompiler recompiles text produced by a lambda, using the
// delimiters in effect around the section, so the lambda's markup is
// itself subject to evaluation.
type InlineCompiler interface {
	CompileInline(source, startDelim, endDelim string) (*Template, error)
}

// inlineDecorator is the reserved section name that defines an inline
// partial instead of rendering: {{#*inline "name"}}...{{/inline}}.
const inlineDecorator = "*inline"

// Block renders its body zero or more times depending on the helper that
// governs it: the one bound from its tag name at construction, or one
// inferred from the referenced value at merge time.
type Block struct {
	pos         *filepos.Position
	name        string
	inverted    bool
	sectionType string // "#" or "^"
	params      []interface{}
	hash        *orderedmap.Map
	blockParams []string
	startDelim  string
	endDelim    string

	// body is back-patched by the parser when the close tag is found;
	// everything else is fixed at construction
	body         *Template
	inverse      *Template
	inverseLabel string

	registry    *Registry
	compiler    InlineCompiler
	boundHelper Helper
}

// NewBlock resolves the tag name against the registry exactly once, here.
// A helper registered (or replaced) later does not affect this block.
func NewBlock(registry *Registry, compiler InlineCompiler, name string,
	inverted bool, params []interface{}, hash *orderedmap.Map,
	blockParams []string, startDelim, endDelim string,
	pos *filepos.Position) *Block {

	if hash == nil {
		hash = orderedmap.NewMap()
	}
	sectionType := "#"
	if inverted {
		sectionType = "^"
	}
	b := &Block{pos: pos, name: name, inverted: inverted, sectionType: sectionType,
		params: params, hash: hash, blockParams: blockParams,
		startDelim: startDelim, endDelim: endDelim,
		inverse: Empty, registry: registry, compiler: compiler}
	b.boundHelper, _ = registry.Lookup(name)
	return b
}

func (b *Block) Name() string                { return b.name }
func (b *Block) Inverted() bool              { return b.inverted }
func (b *Block) Body() *Template             { return b.body }
func (b *Block) InverseBody() *Template      { return b.inverse }
func (b *Block) StartDelimiter() string      { return b.startDelim }
func (b *Block) EndDelimiter() string        { return b.endDelim }
func (b *Block) Position() *filepos.Position { return b.pos }

// SetBody back-patches the section body once the matching close tag has
// been parsed.
func (b *Block) SetBody(body *Template) { b.body = body }

// SetInverse attaches the else branch; label is "else" or "^".
func (b *Block) SetInverse(label string, inverse *Template) error {
	if label != "else" && label != "^" {
		return fmt.Errorf("Expected inverse label to be one of 'else' or '^', but was '%s'", label)
	}
	b.inverseLabel = label
	b.inverse = inverse
	return nil
}

// Before makes inline partials declared inside the body invisible to
// siblings: it pushes a copy of the visible set that After pops again.
func (b *Block) Before(scope *Scope, _ io.Writer) error {
	if b.body == nil || b.isDecorator() {
		return nil
	}
	scope.InlinePartials().Push()
	return nil
}

// After runs even when Merge failed; the pair must stay symmetric on
// every exit path.
func (b *Block) After(scope *Scope, _ io.Writer) error {
	if b.body == nil || b.isDecorator() {
		return nil
	}
	scope.InlinePartials().Pop()
	return nil
}

// Merge decides what governs the section body and invokes it:
//
//  1. a helper statically bound from the tag name wins outright;
//  2. otherwise one is inferred from the referenced value: inverted
//     sections negate, sequences iterate, booleans branch, lambdas
//     recompile their output, anything else rebinds the scope;
//  3. if the reference resolved to nothing and a helperMissing fallback
//     is registered, it replaces the inferred helper.
func (b *Block) Merge(scope *Scope, w io.Writer) error {
	if b.body == nil {
		return nil
	}
	if b.isDecorator() {
		return b.definePartial(scope)
	}

	helper := b.boundHelper
	helperName := b.name
	body := b.body
	var value interface{}
	valueScope := scope

	if helper == nil {
		resolved, _, err := scope.Resolve(b.name)
		if err != nil {
			return b.annotate(err)
		}
		value = b.registry.Transform(resolved)

		switch {
		case b.inverted:
			helperName = UnlessHelperName
		case isSequence(value):
			helperName = EachHelperName
		case isBool(value):
			helperName = IfHelperName
		case isLambda(value):
			helperName = WithHelperName
			out, err := value.(Lambda).Apply(scope, b.body)
			if err != nil {
				return HelperError{Name: b.name, Pos: b.pos, Err: err}
			}
			body, err = b.compiler.CompileInline(out, b.startDelim, b.endDelim)
			if err != nil {
				return err
			}
		default:
			helperName = WithHelperName
			valueScope = scope.Child(value)
		}

		builtin, registered := b.registry.Lookup(helperName)
		if !registered {
			return fmt.Errorf("No helper named '%s' is registered (%s)",
				helperName, b.pos.AsCompactString())
		}
		helper = builtin

		if value == nil {
			if missing, registered := b.registry.Lookup(HelperMissing); registered {
				helper = missing
			}
		}
	} else {
		resolved, err := b.explicitContext(scope)
		if err != nil {
			return b.annotate(err)
		}
		value = b.registry.Transform(resolved)
	}

	params, err := resolveParams(valueScope, b.params)
	if err != nil {
		return b.annotate(err)
	}
	hash, err := resolveHash(valueScope, b.hash)
	if err != nil {
		return b.annotate(err)
	}
	valueScope.SetData(dataParamSize, len(b.params))

	opts := &Options{Name: helperName, TagType: TagTypeSection, Scope: valueScope,
		Params: params, Hash: hash, BlockParams: b.blockParams,
		body: body, inverse: b.inverse, writer: w, registry: b.registry}

	result, err := helper.Apply(value, opts)
	if err != nil {
		if _, alreadyWrapped := err.(HelperError); alreadyWrapped {
			return err
		}
		return HelperError{Name: helperName, Pos: b.pos, Err: err}
	}
	if len(result) > 0 {
		_, err = io.WriteString(w, result)
	}
	return err
}

// explicitContext keeps helper-call semantics: the context value is the
// first positional argument resolved against the calling scope, or the
// scope's own value when none was declared.
func (b *Block) explicitContext(scope *Scope) (interface{}, error) {
	if len(b.params) == 0 {
		return scope.Self(), nil
	}
	return resolveParam(scope, b.params[0])
}

func (b *Block) isDecorator() bool { return b.name == inlineDecorator }

func (b *Block) definePartial(scope *Scope) error {
	if len(b.params) == 0 {
		return fmt.Errorf("Expected inline partial to be named (%s)", b.pos.AsCompactString())
	}
	name, isStr := b.params[0].(Str)
	if !isStr {
		return fmt.Errorf("Expected inline partial name to be a string literal (%s)",
			b.pos.AsCompactString())
	}
	scope.InlinePartials().Define(string(name), b.body)
	return nil
}

func (b *Block) annotate(err error) error {
	if resErr, isRes := err.(ResolutionError); isRes && !resErr.Pos.IsKnown() {
		resErr.Pos = b.pos
		return resErr
	}
	return err
}

// Text reconstructs the block's source-ish form, body included.
func (b *Block) Text() string { return b.text(true) }

// String elides the body, for diagnostics.
func (b *Block) String() string { return b.text(false) }

func (b *Block) text(complete bool) string {
	text := b.startDelim + b.sectionType + b.name
	if params := paramsText(b.params); len(params) > 0 {
		text += " " + params
	}
	if hash := hashText(b.hash); len(hash) > 0 {
		text += " " + hash
	}
	if len(b.blockParams) > 0 {
		text += " as |"
		for i, name := range b.blockParams {
			if i > 0 {
				text += " "
			}
			text += name
		}
		text += "|"
	}
	text += b.endDelim
	if complete {
		if b.body != nil {
			text += b.body.Text()
		}
		if !b.inverse.IsEmpty() {
			text += b.startDelim + b.inverseLabel + b.endDelim + b.inverse.Text()
		}
	} else {
		text += "\n...\n"
	}
	return text + b.startDelim + "/" + b.name + b.endDelim
}

// collectTags walks in document order: the block's own name first, then
// body, then inverse.
func (b *Block) collectTags(acc *orderedSet, tagType TagType) {
	if tagType == TagTypeSection {
		acc.Add(b.name)
	}
	if b.body != nil {
		b.body.collectTags(acc, tagType)
	}
	b.inverse.collectTags(acc, tagType)
}

func (b *Block) collectRefParams(acc *orderedSet) {
	collectParamRefs(acc, b.params, b.hash)
	if b.body != nil {
		b.body.collectRefParams(acc)
	}
	b.inverse.collectRefParams(acc)
}

func isBool(val interface{}) bool {
	_, ok := val.(bool)
	return ok
}

func isLambda(val interface{}) bool {
	_, ok := val.(Lambda)
	return ok
}
