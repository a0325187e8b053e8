// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"

	"carvel.dev/stencil/pkg/filepos"
)

// ResolutionError reports parent navigation ("../") walking past the root
// of the scope chain.
type ResolutionError struct {
	Path string
	Pos  *filepos.Position
}

func NewResolutionError(path string) ResolutionError {
	return ResolutionError{Path: path}
}

func (e ResolutionError) Error() string {
	msg := fmt.Sprintf("Resolving path '%s': parent navigation exceeds scope depth", e.Path)
	if e.Pos.IsKnown() {
		msg += fmt.Sprintf(" (%s)", e.Pos.AsCompactString())
	}
	return msg
}

// HelperError reports a helper failing while a tag was being merged.
type HelperError struct {
	Name string
	Pos  *filepos.Position
	Err  error
}

func (e HelperError) Error() string {
	msg := fmt.Sprintf("Helper '%s': %s", e.Name, e.Err)
	if e.Pos.IsKnown() {
		msg += fmt.Sprintf(" (%s)", e.Pos.AsCompactString())
	}
	return msg
}

func (e HelperError) Unwrap() error { return e.Err }

// EvalError wraps any failure during evaluation of a named template.
type EvalError struct {
	TemplateName string
	Err          error
}

func (e EvalError) Error() string {
	if len(e.TemplateName) == 0 {
		return fmt.Sprintf("Evaluating template: %s", e.Err)
	}
	return fmt.Sprintf("Evaluating template '%s': %s", e.TemplateName, e.Err)
}

func (e EvalError) Unwrap() error { return e.Err }
