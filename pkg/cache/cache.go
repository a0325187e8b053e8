// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"

	"carvel.dev/stencil/pkg/files"
	"carvel.dev/stencil/pkg/template"
)

// Parser is the external collaborator that compiles template source; the
// cache only propagates its failures, never stores them.
type Parser interface {
	Parse(src files.Source) (*template.Template, error)
}

// TemplateCache memoizes compiled templates keyed by source identity.
type TemplateCache interface {
	Get(src files.Source, parser Parser) (*template.Template, error)
	Evict(src files.Source)
	Clear()
	SetReload(reload bool) TemplateCache
}

type entry struct {
	tmpl      *template.Template
	freshness string
}

// MapTemplateCache guards a plain map with a mutex. Concurrent Get calls
// for the same source may compile twice and race to store equivalent
// trees; that costs time, not correctness.
type MapTemplateCache struct {
	mu      sync.Mutex
	entries map[string]entry
	reload  bool
}

var _ TemplateCache = &MapTemplateCache{}

func NewMapTemplateCache() *MapTemplateCache {
	return &MapTemplateCache{entries: map[string]entry{}}
}

func (c *MapTemplateCache) Get(src files.Source, parser Parser) (*template.Template, error) {
	c.mu.Lock()
	cached, found := c.entries[src.Name()]
	reload := c.reload
	c.mu.Unlock()

	if found && !reload {
		return cached.tmpl, nil
	}

	freshness, err := src.Freshness()
	if err != nil {
		return nil, err
	}
	if found && freshness == cached.freshness {
		return cached.tmpl, nil
	}
	tmpl, err := parser.Parse(src)
	if err != nil {
		// a failed compile must leave the cache in its prior state
		return nil, err
	}

	c.mu.Lock()
	c.entries[src.Name()] = entry{tmpl: tmpl, freshness: freshness}
	c.mu.Unlock()
	return tmpl, nil
}

func (c *MapTemplateCache) Evict(src files.Source) {
	c.mu.Lock()
	delete(c.entries, src.Name())
	c.mu.Unlock()
}

func (c *MapTemplateCache) Clear() {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.mu.Unlock()
}

// SetReload toggles the per-Get freshness check; returns the cache for
// fluent configuration.
func (c *MapTemplateCache) SetReload(reload bool) TemplateCache {
	c.mu.Lock()
	c.reload = reload
	c.mu.Unlock()
	return c
}

// NullTemplateCache never stores anything: every Get re-invokes the
// parser. It defines the semantics any caching variant must be
// indistinguishable from, except for speed and tree identity.
type NullTemplateCache struct{}

var _ TemplateCache = NullTemplateCache{}

func NewNullTemplateCache() NullTemplateCache { return NullTemplateCache{} }

func (c NullTemplateCache) Get(src files.Source, parser Parser) (*template.Template, error) {
	return parser.Parse(src)
}

func (c NullTemplateCache) Evict(files.Source) {}

func (c NullTemplateCache) Clear() {}

func (c NullTemplateCache) SetReload(bool) TemplateCache { return c }
