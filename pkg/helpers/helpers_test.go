// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package helpers_test

import (
	"fmt"
	"testing"

	"carvel.dev/stencil/pkg/helpers"
	"carvel.dev/stencil/pkg/orderedmap"
	"carvel.dev/stencil/pkg/parser"
	"carvel.dev/stencil/pkg/template"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, source string, data interface{}) string {
	registry := template.NewRegistry()
	helpers.Register(registry)
	tmpl, err := parser.NewParser(registry).ParseString("test", source)
	require.NoError(t, err)
	out, err := tmpl.RenderString(data)
	require.NoError(t, err)
	return out
}

func TestEachIteratesSequences(t *testing.T) {
	out := render(t, "{{#each items}}[{{this}}]{{/each}}",
		map[string]interface{}{"items": []interface{}{"a", "b", "c"}})
	require.Equal(t, "[a][b][c]", out)
}

func TestEachPublishesIterationData(t *testing.T) {
	out := render(t,
		"{{#each items}}{{@index}}/{{@key}}/{{@first}}/{{@last}}:{{this}} {{/each}}",
		map[string]interface{}{"items": []interface{}{"a", "b"}})
	require.Equal(t, "0/0/true/false:a 1/1/false/true:b ", out)
}

func TestEachBindsBlockParams(t *testing.T) {
	out := render(t, "{{#each items as |item i|}}{{i}}:{{item.name}} {{/each}}",
		map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "b"},
		}})
	require.Equal(t, "0:a 1:b ", out)
}

func TestEachIteratesPlainMapsInSortedKeyOrder(t *testing.T) {
	out := render(t, "{{#each vals}}{{@key}}={{this}};{{/each}}",
		map[string]interface{}{"vals": map[string]interface{}{
			"zeta": 3, "alpha": 1, "mid": 2,
		}})
	require.Equal(t, "alpha=1;mid=2;zeta=3;", out)
}

func TestEachIteratesOrderedMapsInInsertionOrder(t *testing.T) {
	vals := orderedmap.NewMap()
	vals.Set("zeta", 3)
	vals.Set("alpha", 1)

	out := render(t, "{{#each vals}}{{@key}}={{this}};{{/each}}",
		map[string]interface{}{"vals": vals})
	require.Equal(t, "zeta=3;alpha=1;", out)
}

func TestEachEmptyRendersInverse(t *testing.T) {
	source := "{{#each items}}[{{this}}]{{else}}none{{/each}}"
	require.Equal(t, "none", render(t, source,
		map[string]interface{}{"items": []interface{}{}}))
	require.Equal(t, "none", render(t, source, map[string]interface{}{}))
}

func TestEachRejectsNonSequences(t *testing.T) {
	registry := template.NewRegistry()
	helpers.Register(registry)
	tmpl, err := parser.NewParser(registry).ParseString("test",
		"{{#each items}}x{{/each}}")
	require.NoError(t, err)

	_, err = tmpl.RenderString(map[string]interface{}{"items": 42})
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected a sequence or mapping, but was int")
}

func TestEachParentScopeReachableFromItems(t *testing.T) {
	out := render(t, "{{#each items}}{{../title}}:{{this}} {{/each}}",
		map[string]interface{}{
			"title": "T",
			"items": []interface{}{"a", "b"},
		})
	require.Equal(t, "T:a T:b ", out)
}

func TestIfBranches(t *testing.T) {
	source := "{{#if val}}yes{{else}}no{{/if}}"
	for _, example := range []struct {
		val      interface{}
		expected string
	}{
		{true, "yes"},
		{"text", "yes"},
		{1, "yes"},
		{[]interface{}{1}, "yes"},
		{false, "no"},
		{"", "no"},
		{0, "no"},
		{0.0, "no"},
		{[]interface{}{}, "no"},
		{nil, "no"},
	} {
		out := render(t, source, map[string]interface{}{"val": example.val})
		require.Equal(t, example.expected, out, fmt.Sprintf("value %#v", example.val))
	}
}

func TestUnlessNegatesIf(t *testing.T) {
	source := "{{#unless val}}empty{{else}}present{{/unless}}"
	require.Equal(t, "empty", render(t, source, map[string]interface{}{"val": ""}))
	require.Equal(t, "present", render(t, source, map[string]interface{}{"val": "x"}))
}

func TestWithRebindsScope(t *testing.T) {
	out := render(t, "{{#with user}}{{name}} ({{../company}}){{/with}}",
		map[string]interface{}{
			"company": "acme",
			"user":    map[string]interface{}{"name": "Edgar"},
		})
	require.Equal(t, "Edgar (acme)", out)
}

func TestWithBlockParamNamesTheValue(t *testing.T) {
	out := render(t, "{{#with user as |u|}}{{u.name}}{{/with}}",
		map[string]interface{}{
			"user": map[string]interface{}{"name": "Edgar"},
		})
	require.Equal(t, "Edgar", out)
}

func TestWithEmptyValueRendersInverse(t *testing.T) {
	out := render(t, "{{#with user}}{{name}}{{else}}anonymous{{/with}}",
		map[string]interface{}{})
	require.Equal(t, "anonymous", out)
}
