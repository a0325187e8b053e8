// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package filepos locates template nodes within their source: file, line,
and (when the parser can provide it) column.
*/
package filepos
