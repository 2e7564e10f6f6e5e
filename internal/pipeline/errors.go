// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import "fmt"

// StageError wraps a failure with the pipeline stage it occurred in. A
// stage error is terminal for the record being processed; batch runs
// continue with the next record.
type StageError struct {
	Stage   Stage
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s stage failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s stage failed: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error { return e.Cause }
