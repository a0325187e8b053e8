// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package stencil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carvel.dev/stencil/pkg/stencil"
	"github.com/k14s/difflib"
	"gopkg.in/yaml.v3"
)

var (
	// Example usage:
	//   go test ./pkg/stencil/ -run TestFiletests TestFiletests.filetest=each-sequence.tpltest
	selectedFileTestPath = kvArg("TestFiletests.filetest")
	showErrs             = kvArg("TestFiletests.errs") // eg t|...
)

// Each filetest holds a template, optional YAML data values, and the
// expected output (or "ERR: " plus the expected error), separated by
// "+++" lines:
//
//	Hello {{name}}!
//	+++
//	name: Edgar
//	+++
//	Hello Edgar!
func TestFiletests(t *testing.T) {
	files, err := os.ReadDir("filetests")
	if err != nil {
		t.Fatal(err)
	}

	if len(selectedFileTestPath) > 0 {
		fmt.Printf("only running %s test(s)\n", selectedFileTestPath)
	}

	var errs []error

	for _, file := range files {
		filePath := filepath.Join("filetests", file.Name())

		if len(selectedFileTestPath) > 0 && !strings.HasPrefix(file.Name(), selectedFileTestPath) {
			continue
		}

		testDesc := fmt.Sprintf("checking %s ...\n", file.Name())
		fmt.Printf("%s", testDesc)

		err := runFileTest(filePath)
		if err != nil {
			fmt.Printf("   FAIL\n")
			if showErrs == "t" {
				sep := strings.Repeat(".", 80)
				fmt.Printf("%s\n%s%s\n", sep, err, sep)
			}
			errs = append(errs, fmt.Errorf("%s: %s", testDesc, err))
		} else {
			fmt.Printf("   .\n")
		}
	}

	if len(errs) > 0 {
		t.Errorf("%s", errs[0].Error())
	}

	if len(selectedFileTestPath) > 0 {
		t.Errorf("skipped tests")
	}
}

func runFileTest(filePath string) error {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	const (
		testSep   = "\n+++\n"
		errPrefix = "ERR: "
	)

	pieces := strings.Split(string(contents), testSep)

	var source, dataStr, expectedStr string
	switch len(pieces) {
	case 2:
		source, expectedStr = pieces[0], pieces[1]
	case 3:
		source, dataStr, expectedStr = pieces[0], pieces[1], pieces[2]
	default:
		return fmt.Errorf("expected file %s to have 2 or 3 +++ separated sections, but had %d",
			filePath, len(pieces))
	}
	expectedStr = strings.TrimSuffix(expectedStr, "\n")

	var data interface{}
	if len(dataStr) > 0 {
		if err := yaml.Unmarshal([]byte(dataStr), &data); err != nil {
			return fmt.Errorf("unmarshaling data values: %s", err)
		}
	}

	resultStr, testErr := stencil.NewEngine().RenderString(filePath, source, data)

	if strings.HasPrefix(expectedStr, errPrefix) {
		if testErr == nil {
			return fmt.Errorf("expected eval error, but did not receive it")
		}
		return expectEquals(testErr.Error(), strings.TrimPrefix(expectedStr, errPrefix))
	}
	if testErr != nil {
		return fmt.Errorf("eval error: %v", testErr)
	}
	return expectEquals(resultStr, expectedStr)
}

func expectEquals(resultStr, expectedStr string) error {
	if resultStr != expectedStr {
		diff := difflib.PPDiff(strings.Split(expectedStr, "\n"), strings.Split(resultStr, "\n"))
		return fmt.Errorf("Not equal; diff expected...actual:\n%v", diff)
	}
	return nil
}

func kvArg(name string) string {
	name += "="
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, name) {
			return strings.TrimPrefix(arg, name)
		}
	}
	return ""
}
