// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser_test

import (
	"fmt"
	"testing"

	"carvel.dev/stencil/pkg/files"
	"carvel.dev/stencil/pkg/helpers"
	"carvel.dev/stencil/pkg/parser"
	"carvel.dev/stencil/pkg/template"
	"github.com/stretchr/testify/require"
)

func newParser() (*parser.Parser, *template.Registry) {
	registry := template.NewRegistry()
	helpers.Register(registry)
	return parser.NewParser(registry), registry
}

func render(t *testing.T, source string, data interface{}) string {
	p, _ := newParser()
	tmpl, err := p.ParseString("test", source)
	require.NoError(t, err)
	out, err := tmpl.RenderString(data)
	require.NoError(t, err)
	return out
}

func TestParsePlainText(t *testing.T) {
	require.Equal(t, "just text, no tags", render(t, "just text, no tags", nil))
}

func TestParseVariables(t *testing.T) {
	out := render(t, "Hello {{name}}, you are {{age}}.",
		map[string]interface{}{"name": "Edgar", "age": 37})
	require.Equal(t, "Hello Edgar, you are 37.", out)
}

func TestParseDottedAndSlashedPaths(t *testing.T) {
	data := map[string]interface{}{
		"user": map[string]interface{}{"name": "Edgar"},
	}
	require.Equal(t, "Edgar", render(t, "{{user.name}}", data))
	require.Equal(t, "Edgar", render(t, "{{user/name}}", data))
}

func TestParseComments(t *testing.T) {
	require.Equal(t, "ab", render(t, "a{{! this is ignored }}b", nil))
}

func TestParseCommentsWithQuoteCharacters(t *testing.T) {
	require.Equal(t, "ab", render(t, "a{{! don't mind me }}b", nil))
	require.Equal(t, "ab", render(t, `a{{! the "weird" case }}b`, nil))
	require.Equal(t, "ab", render(t, "a{{ ! mixed 'n \"matched }}b", nil))
}

func TestParseAmpersandVariable(t *testing.T) {
	p, _ := newParser()
	tmpl, err := p.ParseString("test", "{{&content}}")
	require.NoError(t, err)
	require.Equal(t, []string{"content"}, tmpl.Collect(template.TagTypeAmpVar))
	require.Empty(t, tmpl.Collect(template.TagTypeVar))
}

func TestParseSectionWithInference(t *testing.T) {
	out := render(t, "{{#items}}[{{this}}]{{/items}}",
		map[string]interface{}{"items": []interface{}{"a", "b"}})
	require.Equal(t, "[a][b]", out)
}

func TestParseSectionWithElse(t *testing.T) {
	source := "{{#ok}}yes{{else}}no{{/ok}}"
	require.Equal(t, "yes", render(t, source, map[string]interface{}{"ok": true}))
	require.Equal(t, "no", render(t, source, map[string]interface{}{"ok": false}))
}

func TestParseCaretAsInverseMarker(t *testing.T) {
	out := render(t, "{{#ok}}yes{{^}}no{{/ok}}", map[string]interface{}{"ok": false})
	require.Equal(t, "no", out)
}

func TestParseInvertedSection(t *testing.T) {
	source := "{{^items}}nothing here{{/items}}"
	require.Equal(t, "nothing here", render(t, source,
		map[string]interface{}{"items": []interface{}{}}))
	require.Empty(t, render(t, source,
		map[string]interface{}{"items": []interface{}{1}}))
}

func TestParseBlockParams(t *testing.T) {
	out := render(t, "{{#each items as |item idx|}}{{idx}}:{{item}} {{/each}}",
		map[string]interface{}{"items": []interface{}{"a", "b"}})
	require.Equal(t, "0:a 1:b ", out)
}

func TestParseLiteralAndHashParams(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("join", func(value interface{}, opts *template.Options) (string, error) {
		sep := opts.HashOr("sep", ",").(string)
		return fmt.Sprintf("%v%s%v%s%v", opts.Param(0), sep, opts.Param(1), sep, opts.Param(2)), nil
	})
	p := parser.NewParser(registry)

	tmpl, err := p.ParseString("test", `{{join "a b" 2 true sep="|"}}`)
	require.NoError(t, err)
	out, err := tmpl.RenderString(nil)
	require.NoError(t, err)
	require.Equal(t, "a b|2|true", out)
}

func TestParseQuotedDelimiterInsideTag(t *testing.T) {
	registry := template.NewRegistry()
	registry.RegisterFunc("echo", func(value interface{}, opts *template.Options) (string, error) {
		return value.(string), nil
	})
	p := parser.NewParser(registry)

	tmpl, err := p.ParseString("test", `{{echo "a }} b"}}`)
	require.NoError(t, err)
	out, err := tmpl.RenderString(nil)
	require.NoError(t, err)
	require.Equal(t, "a }} b", out)
}

func TestParseDelimiterChange(t *testing.T) {
	out := render(t, "{{name}} {{=<% %>=}}<%name%> {{name}}",
		map[string]interface{}{"name": "x"})
	require.Equal(t, "x x {{name}}", out)
}

func TestParseCustomInitialDelimiters(t *testing.T) {
	registry := template.NewRegistry()
	helpers.Register(registry)
	p := parser.NewParser(registry).SetDelimiters("<%", "%>")

	tmpl, err := p.ParseString("test", "Hello <%name%>")
	require.NoError(t, err)
	out, err := tmpl.RenderString(map[string]interface{}{"name": "Edgar"})
	require.NoError(t, err)
	require.Equal(t, "Hello Edgar", out)
}

func TestParseInlinePartial(t *testing.T) {
	out := render(t, `{{#*inline "note"}}N:{{msg}}{{/inline}}{{> note}}`,
		map[string]interface{}{"msg": "hi"})
	require.Equal(t, "N:hi", out)
}

func TestParseFromSource(t *testing.T) {
	p, _ := newParser()
	src := files.NewBytesSource("greeting.tpl", []byte("Hello {{name}}"))

	tmpl, err := p.Parse(src)
	require.NoError(t, err)
	require.Equal(t, "greeting.tpl", tmpl.Name())
	out, err := tmpl.RenderString(map[string]interface{}{"name": "Edgar"})
	require.NoError(t, err)
	require.Equal(t, "Hello Edgar", out)
}

func TestParseTextRoundTrip(t *testing.T) {
	p, _ := newParser()
	for _, source := range []string{
		"Hello {{name}}!",
		"{{#each items as |item|}}{{item}}{{/each}}",
		"{{#ok}}yes{{else}}no{{/ok}}",
		"{{&raw}}",
		"{{! note }}",
		`{{join "a" 1 k=v}}`,
	} {
		tmpl, err := p.ParseString("test", source)
		require.NoError(t, err)
		require.Equal(t, source, tmpl.Text(), fmt.Sprintf("source %q", source))
	}
}

func TestParseErrors(t *testing.T) {
	examples := []struct {
		source      string
		expectedErr string
	}{
		{"{{#items}}never closed",
			"Compiling template: Unterminated section '{{#items}}' (test:1:1)"},
		{"{{^items}}never closed",
			"Compiling template: Unterminated section '{{^items}}' (test:1:1)"},
		{"{{#a}}{{/b}}",
			"Compiling template: Expected close tag for section 'a', but found 'b' (test:1:7)"},
		{"text {{/a}}",
			"Compiling template: Unexpected close tag '{{/a}}' (test:1:6)"},
		{"{{name",
			"Compiling template: Missing tag closing '}}' (test:1:1)"},
		{"{{}}",
			"Compiling template: Expected tag to not be empty (test:1:1)"},
		{"{{else}}",
			"Compiling template: Unexpected '{{else}}' outside of a section (test:1:1)"},
		{"{{#a}}{{else}}x{{else}}y{{/a}}",
			"Compiling template: Section 'a' already has an inverse (test:1:16)"},
		{"{{> }}",
			"Compiling template: Expected partial tag to name a partial (test:1:1)"},
		{"{{name as |x|}}",
			"Compiling template: Expected block params only on sections (test:1:1)"},
		{`{{echo "unterminated}}`,
			"Compiling template: Unterminated string literal in tag (test:1:3)"},
		{"{{=<% =}}",
			"Compiling template: Expected delimiter tag to declare two delimiters, but found 1 (test:1:1)"},
	}

	p, _ := newParser()
	for _, example := range examples {
		_, err := p.ParseString("test", example.source)
		require.Error(t, err, example.source)
		require.Equal(t, example.expectedErr, err.Error(), fmt.Sprintf("source %q", example.source))
	}
}

func TestParseErrorPositionOnLaterLine(t *testing.T) {
	p, _ := newParser()
	_, err := p.ParseString("config.tpl", "line one\nline two {{#x}}{{/y}}")
	require.Error(t, err)
	require.Equal(t,
		"Compiling template: Expected close tag for section 'x', but found 'y' (config.tpl:2:16)",
		err.Error())
}
