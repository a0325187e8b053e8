// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package orderedmap provides a map that remembers insertion order. Hash
(named) arguments of tags are kept in one so that serialization and helper
iteration see them exactly as the template author wrote them.
*/
package orderedmap
