// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package helpers carries the builtin helpers (each, if, unless, with) and
the adapter for helpers scripted in Starlark.
*/
package helpers
