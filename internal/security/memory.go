// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package security holds small helpers for handling document passwords in
// memory.
package security

// Secret wraps a document password with best-effort memory scrubbing on
// Clear.
//
// Limitations: Go's garbage collector may move or copy memory at any time,
// and string conversions create immutable copies that cannot be zeroed.
// Clear() zeroes the internal byte slice, which reduces the window of
// exposure, but cannot guarantee that no copies exist elsewhere in the
// heap. Do not rely on this for cryptographic-strength memory protection.
type Secret struct {
	data []byte
}

// NewSecret copies s into a mutable byte slice.
func NewSecret(s string) *Secret {
	data := make([]byte, len(s))
	copy(data, s)
	return &Secret{data: data}
}

// String returns the password value. Use sparingly: each call creates an
// immutable copy that cannot be zeroed by Clear.
func (s *Secret) String() string {
	return string(s.data)
}

// IsSet reports whether the secret holds a non-empty value.
func (s *Secret) IsSet() bool {
	return len(s.data) > 0
}

// Clear overwrites the internal byte slice with zeros and releases it.
func (s *Secret) Clear() {
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}
