// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package cache memoizes compiled templates by source identity, with an
optional freshness recheck on every lookup and an fsnotify-driven
evicting watcher. NullTemplateCache is the caching-free baseline.
*/
package cache
