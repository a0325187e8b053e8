// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package stencil is the host-facing facade: an Engine bundling the helper
registry, the parser and the template cache behind compile/render calls.
*/
package stencil
