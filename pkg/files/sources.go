// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package files

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Source supplies template text plus the identity the cache keys on.
// Freshness returns an opaque signal that changes whenever the underlying
// content may have changed (mtime for local files, content digest for
// in-memory sources).
type Source interface {
	Name() string
	Description() string
	Bytes() ([]byte, error)
	Freshness() (string, error)
}

var _ []Source = []Source{BytesSource{}, StdinSource{}, LocalSource{}}

type BytesSource struct {
	name string
	data []byte
}

func NewBytesSource(name string, data []byte) BytesSource { return BytesSource{name, data} }

func (s BytesSource) Name() string        { return s.name }
func (s BytesSource) Description() string { return fmt.Sprintf("template '%s'", s.name) }

func (s BytesSource) Bytes() ([]byte, error) { return s.data, nil }

func (s BytesSource) Freshness() (string, error) {
	digest := sha256.Sum256(s.data)
	return fmt.Sprintf("%x", digest[:8]), nil
}

type StdinSource struct {
	bytes []byte
	err   error
}

func NewStdinSource() StdinSource {
	// only read stdin once
	bs, err := io.ReadAll(os.Stdin)
	return StdinSource{bs, err}
}

func (s StdinSource) Name() string        { return "stdin" }
func (s StdinSource) Description() string { return "stdin" }

func (s StdinSource) Bytes() ([]byte, error) { return s.bytes, s.err }

func (s StdinSource) Freshness() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	digest := sha256.Sum256(s.bytes)
	return fmt.Sprintf("%x", digest[:8]), nil
}

type LocalSource struct {
	path string
}

func NewLocalSource(path string) LocalSource { return LocalSource{path} }

func (s LocalSource) Name() string        { return s.path }
func (s LocalSource) Description() string { return fmt.Sprintf("file '%s'", s.path) }

func (s LocalSource) Path() string { return s.path }

func (s LocalSource) Bytes() ([]byte, error) { return os.ReadFile(s.path) }

func (s LocalSource) Freshness() (string, error) {
	fileInfo, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("Checking file '%s': %s", s.path, err)
	}
	return strconv.FormatInt(fileInfo.ModTime().UnixNano(), 10), nil
}

// NewSources maps CLI arguments to sources ("-" means stdin).
func NewSources(paths []string) ([]Source, error) {
	var srcs []Source
	for _, path := range paths {
		switch {
		case path == "-":
			srcs = append(srcs, NewStdinSource())
		default:
			fileInfo, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("Checking file '%s': %s", path, err)
			}
			if fileInfo.IsDir() {
				return nil, fmt.Errorf("Expected file '%s' to not be a directory", path)
			}
			srcs = append(srcs, NewLocalSource(path))
		}
	}
	return srcs, nil
}
