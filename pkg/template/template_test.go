// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"carvel.dev/stencil/pkg/filepos"
	"carvel.dev/stencil/pkg/orderedmap"
	"carvel.dev/stencil/pkg/template"
	"github.com/stretchr/testify/require"
)

func newVarNode(registry *template.Registry, name string, params ...interface{}) *template.VariableNode {
	return template.NewVariableNode(registry, name, params, nil,
		template.TagTypeVar, "{{", "}}", filepos.NewPosition(1))
}

func TestVariableRendersResolvedValue(t *testing.T) {
	registry := template.NewRegistry()
	tmpl := template.NewTemplate("test", []template.Node{
		template.NewTextNode("Hello ", filepos.NewPosition(1)),
		newVarNode(registry, "name"),
		template.NewTextNode("!", filepos.NewPosition(1)),
	})

	out, err := tmpl.RenderString(map[string]interface{}{"name": "Edgar"})
	require.NoError(t, err)
	require.Equal(t, "Hello Edgar!", out)
}

func TestVariableValueFormatting(t *testing.T) {
	registry := template.NewRegistry()
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "val")})

	for _, example := range []struct {
		val      interface{}
		expected string
	}{
		{"text", "text"},
		{42, "42"},
		{1.5, "1.5"},
		{true, "true"},
		{nil, ""},
	} {
		out, err := tmpl.RenderString(map[string]interface{}{"val": example.val})
		require.NoError(t, err)
		require.Equal(t, example.expected, out, fmt.Sprintf("value %v", example.val))
	}
}

func TestVariableMissingValueRendersNothing(t *testing.T) {
	registry := template.NewRegistry()
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "ghost")})

	out, err := tmpl.RenderString(map[string]interface{}{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestVariableMissingValueInvokesHelperMissing(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc(template.HelperMissing,
		func(value interface{}, opts *template.Options) (string, error) {
			require.Nil(t, value)
			return "{" + opts.Name + " not found}", nil
		})
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "ghost")})

	out, err := tmpl.RenderString(map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, "{ghost not found}", out)
}

func TestVariableExplicitHelperReceivesFirstParam(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("upper", func(value interface{}, opts *template.Options) (string, error) {
		return strings.ToUpper(value.(string)), nil
	})
	tmpl := template.NewTemplate("test", []template.Node{
		newVarNode(registry, "upper", template.Ref("name")),
	})

	out, err := tmpl.RenderString(map[string]interface{}{"name": "edgar"})
	require.NoError(t, err)
	require.Equal(t, "EDGAR", out)
}

func TestVariableExplicitHelperWithoutParamsReceivesSelf(t *testing.T) {
	registry := template.NewRegistry()
	var seen interface{}
	registry.RegisterFunc("inspect", func(value interface{}, opts *template.Options) (string, error) {
		seen = value
		return "", nil
	})
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "inspect")})

	data := map[string]interface{}{"name": "edgar"}
	_, err := tmpl.RenderString(data)
	require.NoError(t, err)
	require.Equal(t, data, seen)
}

func TestVariableHelperHashValues(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("greet", func(value interface{}, opts *template.Options) (string, error) {
		prefix := opts.HashOr("prefix", "Hello").(string)
		return fmt.Sprintf("%s %v", prefix, opts.Param(0)), nil
	})
	hash := orderedmap.NewMap()
	hash.Set("prefix", template.Str("Hi"))
	tmpl := template.NewTemplate("test", []template.Node{
		template.NewVariableNode(registry, "greet",
			[]interface{}{template.Ref("name")}, hash,
			template.TagTypeVar, "{{", "}}", filepos.NewPosition(1)),
	})

	out, err := tmpl.RenderString(map[string]interface{}{"name": "Edgar"})
	require.NoError(t, err)
	require.Equal(t, "Hi Edgar", out)
}

func TestVariableLambdaValueIsApplied(t *testing.T) {
	registry := template.NewRegistry()
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "now")})

	out, err := tmpl.RenderString(map[string]interface{}{
		"now": template.LambdaFunc(func(scope *template.Scope, body *template.Template) (string, error) {
			require.True(t, body.IsEmpty())
			return "later", nil
		}),
	})
	require.NoError(t, err)
	require.Equal(t, "later", out)
}

func TestVariableHelperErrorIsAnnotated(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("boom", func(value interface{}, opts *template.Options) (string, error) {
		return "", errors.New("exploded")
	})
	tmpl := template.NewTemplate("greeting.tpl", []template.Node{newVarNode(registry, "boom")})

	_, err := tmpl.RenderString(map[string]interface{}{})
	require.Error(t, err)

	var evalErr template.EvalError
	require.ErrorAs(t, err, &evalErr)
	require.Equal(t, "greeting.tpl", evalErr.TemplateName)

	var helperErr template.HelperError
	require.ErrorAs(t, err, &helperErr)
	require.Equal(t, "boom", helperErr.Name)
}

func TestVariableTransformerRewritesValues(t *testing.T) {
	registry := template.NewRegistry()
	registry.AddTransformer(template.TransformerFunc(func(val interface{}) interface{} {
		if s, isStr := val.(string); isStr {
			return strings.TrimSpace(s)
		}
		return val
	}))
	tmpl := template.NewTemplate("test", []template.Node{newVarNode(registry, "name")})

	out, err := tmpl.RenderString(map[string]interface{}{"name": "  edgar  "})
	require.NoError(t, err)
	require.Equal(t, "edgar", out)
}

func TestVariableText(t *testing.T) {
	registry := template.NewRegistry()
	require.Equal(t, "{{name}}", newVarNode(registry, "name").Text())

	amp := template.NewVariableNode(registry, "html", nil, nil,
		template.TagTypeAmpVar, "{{", "}}", filepos.NewPosition(1))
	require.Equal(t, "{{&html}}", amp.Text())

	hash := orderedmap.NewMap()
	hash.Set("k", template.Ref("v"))
	full := template.NewVariableNode(registry, "fn",
		[]interface{}{template.Ref("x")}, hash,
		template.TagTypeVar, "{{", "}}", filepos.NewPosition(1))
	require.Equal(t, "{{fn x k=v}}", full.Text())
}

func TestCommentNodeRendersNothing(t *testing.T) {
	tmpl := template.NewTemplate("test", []template.Node{
		template.NewCommentNode(" ignore me ", "{{", "}}", filepos.NewPosition(1)),
	})
	out, err := tmpl.RenderString(nil)
	require.NoError(t, err)
	require.Empty(t, out)
	require.Equal(t, "{{! ignore me }}", tmpl.Text())
}

func TestAfterRunsWhenMergeFails(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("boom", func(value interface{}, opts *template.Options) (string, error) {
		return "", errors.New("exploded")
	})
	block := newTestBlock(registry, &stubCompiler{}, "boom", false)

	scope := template.NewScope(map[string]interface{}{})
	baseDepth := scope.InlinePartials().Depth()

	tmpl := template.NewTemplate("test", []template.Node{block})
	var buf strings.Builder
	require.Error(t, tmpl.Eval(scope, &buf))
	require.Equal(t, baseDepth, scope.InlinePartials().Depth(),
		"frame pushed by Before must be popped even when the helper fails")
}

func TestInlinePartialsInvisibleToSiblings(t *testing.T) {
	registry := template.NewRegistry()
	compiler := &stubCompiler{}

	// {{#outer}}{{#*inline "note"}}N{{/inline}}{{> note}}{{/outer}}
	definition := template.NewBlock(registry, compiler, "*inline", false,
		[]interface{}{template.Str("note")}, nil, nil, "{{", "}}", filepos.NewPosition(1))
	definition.SetBody(template.NewTemplate("note", []template.Node{
		template.NewTextNode("N", filepos.NewPosition(1))}))

	registry.RegisterFunc("outer", func(value interface{}, opts *template.Options) (string, error) {
		return opts.Fn()
	})
	outer := template.NewBlock(registry, compiler, "outer", false,
		nil, nil, nil, "{{", "}}", filepos.NewPosition(1))
	outer.SetBody(template.NewTemplate("body", []template.Node{
		definition,
		template.NewPartialNode("note", "{{", "}}", filepos.NewPosition(1)),
	}))

	out, err := template.NewTemplate("test", []template.Node{outer}).
		RenderString(map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, "N", out)

	// a sibling after the block must not see the definition
	sibling := template.NewTemplate("test", []template.Node{
		outer,
		template.NewPartialNode("note", "{{", "}}", filepos.NewPosition(1)),
	})
	_, err = sibling.RenderString(map[string]interface{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "The partial 'note' could not be found")
}

func TestEmptyTemplateSentinel(t *testing.T) {
	require.True(t, template.Empty.IsEmpty())
	out, err := template.Empty.RenderString(map[string]interface{}{})
	require.NoError(t, err)
	require.Empty(t, out)
}
