// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package render

import "fmt"

// Error reports a rendering or protection failure. Op names the rendering
// phase that failed.
type Error struct {
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("render %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }
