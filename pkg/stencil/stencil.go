// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package stencil

import (
	"fmt"
	"regexp"

	"carvel.dev/stencil/pkg/cache"
	"carvel.dev/stencil/pkg/files"
	"carvel.dev/stencil/pkg/helpers"
	"carvel.dev/stencil/pkg/parser"
	"carvel.dev/stencil/pkg/template"
	"carvel.dev/stencil/pkg/version"
	goversion "github.com/hashicorp/go-version"
)

// requiresPragma lets a template pin a minimum engine version:
// {{! stencil:requires ">= 0.3.0" }}
var requiresPragma = regexp.MustCompile(`stencil:requires\s+"([^"]+)"`)

// Engine ties together the helper registry, the parser, and the template
// cache. One Engine may serve concurrent renders; compiled templates are
// immutable and the cache is the one shared mutable piece.
type Engine struct {
	registry *template.Registry
	parser   *parser.Parser
	cache    cache.TemplateCache
}

func NewEngine() *Engine {
	registry := template.NewRegistry()
	helpers.Register(registry)
	return &Engine{
		registry: registry,
		parser:   parser.NewParser(registry),
		cache:    cache.NewMapTemplateCache(),
	}
}

func (e *Engine) Registry() *template.Registry { return e.registry }
func (e *Engine) Cache() cache.TemplateCache   { return e.cache }

// SetCache swaps the cache implementation (e.g. NullTemplateCache).
func (e *Engine) SetCache(c cache.TemplateCache) *Engine {
	e.cache = c
	return e
}

// SetDelimiters changes the default tag delimiters for templates compiled
// afterwards.
func (e *Engine) SetDelimiters(start, end string) *Engine {
	e.parser.SetDelimiters(start, end)
	return e
}

// RegisterStarlarkHelper compiles a Starlark-authored helper and
// registers it under name.
func (e *Engine) RegisterStarlarkHelper(name, src string) error {
	helper, err := helpers.NewStarlarkHelper(name, src)
	if err != nil {
		return err
	}
	e.registry.Register(name, helper)
	return nil
}

// Compile returns the compiled template for src, consulting the cache.
func (e *Engine) Compile(src files.Source) (*template.Template, error) {
	if err := e.checkRequiredVersion(src); err != nil {
		return nil, err
	}
	return e.cache.Get(src, e.parser)
}

func (e *Engine) CompileString(name, source string) (*template.Template, error) {
	return e.Compile(files.NewBytesSource(name, []byte(source)))
}

// RenderString compiles (or fetches) and renders in one step.
func (e *Engine) RenderString(name, source string, value interface{}) (string, error) {
	tmpl, err := e.CompileString(name, source)
	if err != nil {
		return "", err
	}
	return tmpl.RenderString(value)
}

func (e *Engine) checkRequiredVersion(src files.Source) error {
	data, err := src.Bytes()
	if err != nil {
		return fmt.Errorf("Reading %s: %s", src.Description(), err)
	}
	match := requiresPragma.FindSubmatch(data)
	if match == nil {
		return nil
	}

	constraints, err := goversion.NewConstraint(string(match[1]))
	if err != nil {
		return fmt.Errorf("Parsing version constraint in %s: %s", src.Description(), err)
	}
	current, err := goversion.NewVersion(version.Version)
	if err != nil {
		return fmt.Errorf("Parsing engine version '%s': %s", version.Version, err)
	}
	if !constraints.Check(current) {
		return fmt.Errorf("%s requires stencil version '%s', but this is '%s'",
			src.Description(), match[1], version.Version)
	}
	return nil
}
