// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"time"

	"carvel.dev/stencil/pkg/files"
	"github.com/fsnotify/fsnotify"
)

// Watcher evicts cache entries for file-backed sources as soon as the
// file changes, an event-driven alternative to SetReload(true) polling.
// When a watched file is removed or renamed away, its watch is restored
// once the path exists again; edits landing in the gap between removal
// and recreation are covered by the eviction already done for the
// removal event.
type Watcher struct {
	cache   TemplateCache
	watcher *fsnotify.Watcher
	sources map[string]files.Source
	done    chan struct{}
}

func NewWatcher(cache TemplateCache, srcs []files.Source) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Starting template watcher: %s", err)
	}

	w := &Watcher{cache: cache, watcher: fsWatcher,
		sources: map[string]files.Source{}, done: make(chan struct{})}

	for _, src := range srcs {
		localSrc, isLocal := src.(files.LocalSource)
		if !isLocal {
			continue
		}
		if err := fsWatcher.Add(localSrc.Path()); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("Watching %s: %s", src.Description(), err)
		}
		w.sources[localSrc.Path()] = src
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if src, watched := w.sources[event.Name]; watched {
				w.cache.Evict(src)
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					// the kernel watch died with the old inode
					go w.rewatch(event.Name)
				}
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// watch errors are not fatal to renders; entries just go stale
		case <-w.done:
			return
		}
	}
}

// rewatch re-establishes the watch on path, waiting for it to reappear
// if the removal has not been followed by a recreation yet.
func (w *Watcher) rewatch(path string) {
	for {
		if err := w.watcher.Add(path); err == nil {
			return
		}
		select {
		case <-w.done:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
