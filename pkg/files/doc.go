// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package files abstracts where template text comes from (local files, stdin,
in-memory bytes) and how its freshness is observed for cache invalidation.
*/
package files
