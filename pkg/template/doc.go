// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package template holds the compiled node tree and its evaluation engine:
the scope chain values are resolved against, the helper registry, the
invocation bundle handed to helpers, and the block merge algorithm that
decides which helper governs each section.
*/
package template
