// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"carvel.dev/stencil/pkg/files"
	"carvel.dev/stencil/pkg/stencil"
	"github.com/BurntSushi/toml"
	"github.com/cppforlife/go-cli-ui/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type RenderOptions struct {
	TemplateFiles   []string
	DataValues      []string
	DataValuesFiles []string
	StartDelimiter  string
	EndDelimiter    string
	Debug           bool
}

func NewRenderOptions() *RenderOptions {
	return &RenderOptions{}
}

func NewRenderCmd(o *RenderOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render templates against data values",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringSliceVarP(&o.TemplateFiles, "file", "f", nil,
		"Template file (use '-' for stdin) (can be specified multiple times)")
	cmd.Flags().StringSliceVarP(&o.DataValues, "data-value", "v", nil,
		"Top-level data value as key=value (can be specified multiple times)")
	cmd.Flags().StringSliceVar(&o.DataValuesFiles, "data-values-file", nil,
		"Data values file (.yml, .yaml, .json or .toml) (can be specified multiple times)")
	cmd.Flags().StringVar(&o.StartDelimiter, "start-delimiter", "{{", "Tag start delimiter")
	cmd.Flags().StringVar(&o.EndDelimiter, "end-delimiter", "}}", "Tag end delimiter")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Print templating debug information")
	return cmd
}

func (o *RenderOptions) Run() error {
	confUI := ui.NewConfUI(ui.NewNoopLogger())
	defer confUI.Flush()

	if len(o.TemplateFiles) == 0 {
		return fmt.Errorf("Expected at least one template file (specify via -f)")
	}

	values, err := o.dataValues()
	if err != nil {
		return err
	}

	srcs, err := files.NewSources(o.TemplateFiles)
	if err != nil {
		return err
	}

	engine := stencil.NewEngine().SetDelimiters(o.StartDelimiter, o.EndDelimiter)

	for _, src := range srcs {
		tmpl, err := engine.Compile(src)
		if err != nil {
			return err
		}
		if o.Debug {
			confUI.BeginLinef("### rendering %s\n", src.Description())
		}
		if err := tmpl.Render(values, os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func (o *RenderOptions) dataValues() (map[string]interface{}, error) {
	values := map[string]interface{}{}

	for _, path := range o.DataValuesFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Reading data values file '%s': %s", path, err)
		}
		fileValues := map[string]interface{}{}
		switch ext := filepath.Ext(path); ext {
		case ".yml", ".yaml":
			err = yaml.Unmarshal(data, &fileValues)
		case ".json":
			err = json.Unmarshal(data, &fileValues)
		case ".toml":
			err = toml.Unmarshal(data, &fileValues)
		default:
			return nil, fmt.Errorf("Expected data values file '%s' to be .yml, .yaml, .json or .toml", path)
		}
		if err != nil {
			return nil, fmt.Errorf("Parsing data values file '%s': %s", path, err)
		}
		for key, val := range fileValues {
			values[key] = val
		}
	}

	for _, kv := range o.DataValues {
		pieces := strings.SplitN(kv, "=", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("Expected data value '%s' to be in key=value format", kv)
		}
		values[pieces[0]] = pieces[1]
	}

	return values, nil
}
