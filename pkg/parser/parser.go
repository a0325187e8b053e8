// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"carvel.dev/stencil/pkg/filepos"
	"carvel.dev/stencil/pkg/files"
	"carvel.dev/stencil/pkg/orderedmap"
	"carvel.dev/stencil/pkg/template"
)

const (
	defaultStartDelim = "{{"
	defaultEndDelim   = "}}"
)

// CompileError is a structured parse failure: location plus message.
type CompileError struct {
	Position *filepos.Position
	Msg      string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("Compiling template: %s (%s)", e.Msg, e.Position.AsCompactString())
}

// Parser turns template source into a compiled node tree. Blocks bind
// their helpers against the given registry while being constructed, so
// the registry must be the one renders will use.
type Parser struct {
	registry   *template.Registry
	startDelim string
	endDelim   string
}

func NewParser(registry *template.Registry) *Parser {
	return &Parser{registry: registry, startDelim: defaultStartDelim, endDelim: defaultEndDelim}
}

// SetDelimiters changes the initial delimiters (templates may still
// switch delimiters mid-source with a {{=<% %>=}} tag).
func (p *Parser) SetDelimiters(start, end string) *Parser {
	p.startDelim = start
	p.endDelim = end
	return p
}

func (p *Parser) Parse(src files.Source) (*template.Template, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, fmt.Errorf("Reading %s: %s", src.Description(), err)
	}
	return p.parse(src.Name(), string(data), p.startDelim, p.endDelim)
}

func (p *Parser) ParseString(name, source string) (*template.Template, error) {
	return p.parse(name, source, p.startDelim, p.endDelim)
}

// CompileInline satisfies template.InlineCompiler: lambda output is
// parsed with the delimiters that surrounded the lambda's section.
func (p *Parser) CompileInline(source, startDelim, endDelim string) (*template.Template, error) {
	return p.parse("inline", source, startDelim, endDelim)
}

type frame struct {
	block        *template.Block
	nodes        []template.Node
	bodyNodes    []template.Node
	inInverse    bool
	inverseLabel string
}

type run struct {
	registry   *template.Registry
	compiler   template.InlineCompiler
	name       string
	src        string
	startDelim string
	endDelim   string
	lineStarts []int
	frames     []*frame
}

func (p *Parser) parse(name, source, startDelim, endDelim string) (*template.Template, error) {
	r := &run{
		registry:   p.registry,
		compiler:   p,
		name:       name,
		src:        source,
		startDelim: startDelim,
		endDelim:   endDelim,
		lineStarts: lineStarts(source),
		frames:     []*frame{{}},
	}
	return r.parse()
}

func (r *run) parse() (*template.Template, error) {
	offset := 0
	for offset < len(r.src) {
		idx := strings.Index(r.src[offset:], r.startDelim)
		if idx < 0 {
			r.appendNode(template.NewTextNode(r.src[offset:], r.posAt(offset)))
			offset = len(r.src)
			break
		}
		if idx > 0 {
			r.appendNode(template.NewTextNode(r.src[offset:offset+idx], r.posAt(offset)))
		}

		tagStart := offset + idx
		contentStart := tagStart + len(r.startDelim)
		contentEnd, err := r.findTagEnd(contentStart)
		if err != nil {
			return nil, err
		}
		content := r.src[contentStart:contentEnd]
		if err := r.handleTag(content, tagStart); err != nil {
			return nil, err
		}
		offset = contentEnd + len(r.endDelim)
	}

	if len(r.frames) > 1 {
		block := r.frames[len(r.frames)-1].block
		return nil, CompileError{Position: block.Position(),
			Msg: fmt.Sprintf("Unterminated section '%s%s%s%s'",
				r.startDelim, sectionMarker(block), block.Name(), r.endDelim)}
	}
	return template.NewTemplate(r.name, r.frames[0].nodes), nil
}

// findTagEnd locates the closing delimiter, skipping over quoted strings
// so a literal containing "}}" does not end the tag early. Comment tags
// carry prose, not literals, and end at the first closing delimiter.
func (r *run) findTagEnd(contentStart int) (int, error) {
	if r.tagIsComment(contentStart) {
		idx := strings.Index(r.src[contentStart:], r.endDelim)
		if idx < 0 {
			return 0, CompileError{Position: r.posAt(contentStart - len(r.startDelim)),
				Msg: fmt.Sprintf("Missing tag closing '%s'", r.endDelim)}
		}
		return contentStart + idx, nil
	}

	i := contentStart
	for i < len(r.src) {
		switch {
		case r.src[i] == '"' || r.src[i] == '\'':
			quote := r.src[i]
			i++
			for i < len(r.src) && r.src[i] != quote {
				if r.src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(r.src) {
				return 0, CompileError{Position: r.posAt(contentStart),
					Msg: "Unterminated string literal in tag"}
			}
			i++
		case strings.HasPrefix(r.src[i:], r.endDelim):
			return i, nil
		default:
			i++
		}
	}
	return 0, CompileError{Position: r.posAt(contentStart - len(r.startDelim)),
		Msg: fmt.Sprintf("Missing tag closing '%s'", r.endDelim)}
}

func (r *run) tagIsComment(contentStart int) bool {
	for i := contentStart; i < len(r.src); i++ {
		if r.src[i] == ' ' || r.src[i] == '\t' || r.src[i] == '\n' || r.src[i] == '\r' {
			continue
		}
		return r.src[i] == '!'
	}
	return false
}

func (r *run) handleTag(content string, tagStart int) error {
	pos := r.posAt(tagStart)
	trimmed := strings.TrimSpace(content)

	switch {
	case trimmed == "else" || trimmed == "^":
		return r.switchToInverse(trimmed, pos)

	case strings.HasPrefix(trimmed, "!"):
		r.appendNode(template.NewCommentNode(content[strings.Index(content, "!")+1:],
			r.startDelim, r.endDelim, pos))
		return nil

	case strings.HasPrefix(trimmed, "#"):
		return r.openBlock(trimmed[1:], false, pos)

	case strings.HasPrefix(trimmed, "^"):
		return r.openBlock(trimmed[1:], true, pos)

	case strings.HasPrefix(trimmed, "/"):
		return r.closeBlock(strings.TrimSpace(trimmed[1:]), pos)

	case strings.HasPrefix(trimmed, ">"):
		name := strings.TrimSpace(trimmed[1:])
		if len(name) == 0 {
			return CompileError{Position: pos, Msg: "Expected partial tag to name a partial"}
		}
		r.appendNode(template.NewPartialNode(name, r.startDelim, r.endDelim, pos))
		return nil

	case strings.HasPrefix(trimmed, "&"):
		return r.variable(trimmed[1:], template.TagTypeAmpVar, pos)

	case strings.HasPrefix(trimmed, "=") && strings.HasSuffix(trimmed, "="):
		return r.changeDelimiters(trimmed, pos)

	case len(trimmed) == 0:
		return CompileError{Position: pos, Msg: "Expected tag to not be empty"}

	default:
		return r.variable(trimmed, template.TagTypeVar, pos)
	}
}

func (r *run) variable(content string, tagType template.TagType, pos *filepos.Position) error {
	name, params, hash, blockParams, err := r.parseTagContents(content, pos)
	if err != nil {
		return err
	}
	if len(blockParams) > 0 {
		return CompileError{Position: pos, Msg: "Expected block params only on sections"}
	}
	r.appendNode(template.NewVariableNode(r.registry, name, params, hash,
		tagType, r.startDelim, r.endDelim, pos))
	return nil
}

func (r *run) openBlock(content string, inverted bool, pos *filepos.Position) error {
	name, params, hash, blockParams, err := r.parseTagContents(content, pos)
	if err != nil {
		return err
	}
	block := template.NewBlock(r.registry, r.compiler, name, inverted,
		params, hash, blockParams, r.startDelim, r.endDelim, pos)
	r.frames = append(r.frames, &frame{block: block})
	return nil
}

func (r *run) switchToInverse(label string, pos *filepos.Position) error {
	f := r.frames[len(r.frames)-1]
	if f.block == nil {
		return CompileError{Position: pos,
			Msg: fmt.Sprintf("Unexpected '%s%s%s' outside of a section", r.startDelim, label, r.endDelim)}
	}
	if f.inInverse {
		return CompileError{Position: pos,
			Msg: fmt.Sprintf("Section '%s' already has an inverse", f.block.Name())}
	}
	f.bodyNodes = f.nodes
	f.nodes = nil
	f.inInverse = true
	f.inverseLabel = label
	return nil
}

func (r *run) closeBlock(name string, pos *filepos.Position) error {
	f := r.frames[len(r.frames)-1]
	if f.block == nil {
		return CompileError{Position: pos,
			Msg: fmt.Sprintf("Unexpected close tag '%s/%s%s'", r.startDelim, name, r.endDelim)}
	}
	if name != f.block.Name() && "*"+name != f.block.Name() {
		return CompileError{Position: pos,
			Msg: fmt.Sprintf("Expected close tag for section '%s', but found '%s'", f.block.Name(), name)}
	}

	if f.inInverse {
		f.block.SetBody(template.NewTemplate(r.name, f.bodyNodes))
		if err := f.block.SetInverse(f.inverseLabel, template.NewTemplate(r.name, f.nodes)); err != nil {
			return CompileError{Position: pos, Msg: err.Error()}
		}
	} else {
		f.block.SetBody(template.NewTemplate(r.name, f.nodes))
	}

	r.frames = r.frames[:len(r.frames)-1]
	r.appendNode(f.block)
	return nil
}

func (r *run) changeDelimiters(content string, pos *filepos.Position) error {
	inner := strings.TrimSpace(content[1 : len(content)-1])
	pieces := strings.Fields(inner)
	if len(pieces) != 2 {
		return CompileError{Position: pos,
			Msg: fmt.Sprintf("Expected delimiter tag to declare two delimiters, but found %d", len(pieces))}
	}
	r.startDelim = pieces[0]
	r.endDelim = pieces[1]
	return nil
}

// parseTagContents splits "name p1 p2 k=v as |a b|" into its pieces.
func (r *run) parseTagContents(content string, pos *filepos.Position) (
	string, []interface{}, *orderedmap.Map, []string, error) {

	tokens, err := tokenize(content)
	if err != nil {
		return "", nil, nil, nil, CompileError{Position: pos, Msg: err.Error()}
	}
	if len(tokens) == 0 {
		return "", nil, nil, nil, CompileError{Position: pos, Msg: "Expected tag to name a value or helper"}
	}

	name := tokens[0]
	var params []interface{}
	hash := orderedmap.NewMap()
	var blockParams []string

	i := 1
	for i < len(tokens) {
		token := tokens[i]
		switch {
		case token == "as":
			blockParams, err = parseBlockParams(tokens[i+1:])
			if err != nil {
				return "", nil, nil, nil, CompileError{Position: pos, Msg: err.Error()}
			}
			i = len(tokens)

		case isHashToken(token):
			eq := strings.Index(token, "=")
			hash.Set(token[:eq], parseValue(token[eq+1:]))
			i++

		default:
			if hash.Len() > 0 {
				return "", nil, nil, nil, CompileError{Position: pos,
					Msg: fmt.Sprintf("Expected positional param '%s' before hash params", token)}
			}
			params = append(params, parseValue(token))
			i++
		}
	}
	return name, params, hash, blockParams, nil
}

func parseBlockParams(tokens []string) ([]string, error) {
	joined := strings.Join(tokens, " ")
	if !strings.HasPrefix(joined, "|") || !strings.HasSuffix(joined, "|") || len(joined) < 2 {
		return nil, fmt.Errorf("Expected block params to be wrapped in '|'")
	}
	names := strings.Fields(joined[1 : len(joined)-1])
	if len(names) == 0 {
		return nil, fmt.Errorf("Expected at least one block param name")
	}
	return names, nil
}

// isHashToken reports key=value shape with an unquoted '=' and a plain
// name on the left.
func isHashToken(token string) bool {
	if strings.HasPrefix(token, "\"") || strings.HasPrefix(token, "'") {
		return false
	}
	eq := strings.Index(token, "=")
	return eq > 0
}

// parseValue classifies one argument: quoted string, bool, number, or a
// reference to resolve at render time.
func parseValue(token string) interface{} {
	if len(token) >= 2 {
		if (token[0] == '"' && token[len(token)-1] == '"') ||
			(token[0] == '\'' && token[len(token)-1] == '\'') {
			return template.Str(unescape(token[1 : len(token)-1]))
		}
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	}
	if intVal, err := strconv.Atoi(token); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(token, 64); err == nil {
		return floatVal
	}
	return template.Ref(token)
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

// tokenize splits tag contents on whitespace, keeping quoted strings
// (and key="quoted value" pairs) intact.
func tokenize(content string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			i++
		case c == '"' || c == '\'':
			quote := c
			current.WriteByte(c)
			i++
			for i < len(content) && content[i] != quote {
				if content[i] == '\\' && i+1 < len(content) {
					current.WriteByte(content[i])
					i++
				}
				current.WriteByte(content[i])
				i++
			}
			if i >= len(content) {
				return nil, fmt.Errorf("Unterminated string literal in tag")
			}
			current.WriteByte(quote)
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func (r *run) appendNode(node template.Node) {
	f := r.frames[len(r.frames)-1]
	f.nodes = append(f.nodes, node)
}

func (r *run) posAt(offset int) *filepos.Position {
	line := sort.Search(len(r.lineStarts), func(i int) bool {
		return r.lineStarts[i] > offset
	})
	col := offset - r.lineStarts[line-1] + 1
	return filepos.NewPositionInFileAtCol(line, col, r.name)
}

func lineStarts(source string) []int {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func sectionMarker(block *template.Block) string {
	if block.Inverted() {
		return "^"
	}
	return "#"
}
