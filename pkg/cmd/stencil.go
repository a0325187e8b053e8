// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"carvel.dev/stencil/pkg/version"
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
)

type StencilOptions struct{}

func NewDefaultStencilOptions() *StencilOptions {
	return &StencilOptions{}
}

func NewDefaultStencilCmd() *cobra.Command {
	return NewStencilCmd(NewDefaultStencilOptions())
}

func NewStencilCmd(o *StencilOptions) *cobra.Command {
	cmd := NewRenderCmd(NewRenderOptions())

	cmd.Use = "stencil"
	cmd.Aliases = nil
	cmd.Version = version.Version
	cmd.Short = "stencil renders logic-light text templates"
	cmd.Long = `stencil renders logic-light text templates against structured data values.`

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(NewRenderCmd(NewRenderOptions())) // also addressable explicitly

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
