// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

// Lambda is a callable resolved from template data. Its output is compiled
// with the delimiters surrounding the section and evaluated as a template,
// not inserted as raw text.
type Lambda interface {
	Apply(scope *Scope, body *Template) (string, error)
}

// LambdaFunc adapts a plain function into a Lambda.
type LambdaFunc func(scope *Scope, body *Template) (string, error)

func (f LambdaFunc) Apply(scope *Scope, body *Template) (string, error) {
	return f(scope, body)
}

// Transformer rewrites values resolved for sections before the implicit
// helper is inferred, e.g. wrapping host callables as Lambdas.
type Transformer interface {
	Transform(val interface{}) interface{}
}

type TransformerFunc func(val interface{}) interface{}

func (f TransformerFunc) Transform(val interface{}) interface{} { return f(val) }

// funcTransformer is always installed: it lifts bare Go functions of
// supported shapes into Lambdas.
type funcTransformer struct{}

func (funcTransformer) Transform(val interface{}) interface{} {
	switch typedVal := val.(type) {
	case func(scope *Scope, body *Template) (string, error):
		return LambdaFunc(typedVal)
	case func() (string, error):
		return LambdaFunc(func(*Scope, *Template) (string, error) { return typedVal() })
	case func() string:
		return LambdaFunc(func(*Scope, *Template) (string, error) { return typedVal(), nil })
	default:
		return val
	}
}
