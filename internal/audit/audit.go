// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package audit emits the immutable trail of pipeline stage events. Events
// are structured JSON written to a caller-supplied sink; the recorder never
// mutates or rereads what it wrote.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome of an audited stage.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audit trail entry. Timestamps are the only non-deterministic
// document-adjacent data; they live here, never in document content.
type Event struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	RecordID    string                 `json:"record_id"`
	Stage       string                 `json:"stage"`
	Outcome     Outcome                `json:"outcome"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder writes audit events. Safe for concurrent use; batch runs share
// one recorder across independent record pipelines.
type Recorder struct {
	mu       sync.Mutex
	writer   io.Writer
	enabled  bool
	writeErr error
}

// NewRecorder creates a recorder writing JSON events to w. A nil writer
// yields a disabled recorder that drops all events.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		writer:  w,
		enabled: w != nil,
	}
}

// Record emits a single event for a pipeline stage.
func (r *Recorder) Record(recordID, stage string, outcome Outcome, errorDetail string, metadata map[string]interface{}) {
	r.emit(Event{
		RecordID:    recordID,
		Stage:       stage,
		Outcome:     outcome,
		ErrorDetail: errorDetail,
		Metadata:    metadata,
	})
}

// StartTiming returns a completion function that records the stage event
// with its elapsed time. Call the returned function exactly once.
func (r *Recorder) StartTiming(recordID, stage string) func(outcome Outcome, errorDetail string, metadata map[string]interface{}) {
	start := time.Now()

	return func(outcome Outcome, errorDetail string, metadata map[string]interface{}) {
		r.emit(Event{
			RecordID:    recordID,
			Stage:       stage,
			Outcome:     outcome,
			DurationMs:  time.Since(start).Milliseconds(),
			ErrorDetail: errorDetail,
			Metadata:    metadata,
		})
	}
}

func (r *Recorder) emit(ev Event) {
	if !r.enabled {
		return
	}

	ev.ID = uuid.NewString()
	ev.Timestamp = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := json.NewEncoder(r.writer).Encode(ev); err != nil && r.writeErr == nil {
		r.writeErr = err
	}
}

// Err returns the first write failure of the sink, or nil. A non-nil result
// means the trail is incomplete from that event onward.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeErr
}
