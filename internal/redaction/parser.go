// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redaction converts redaction-marked free text into a sequence of
// plain and redacted segments. Clear text inside a redaction span never
// leaves this package: redacted segments carry only a coarse length bucket,
// and any ambiguity in marker pairing is a hard error rather than a silent
// pass-through (fail closed).
package redaction

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Marker is the delimiter pair surrounding text to redact. The same
// sequence opens and closes a span.
const Marker = "||"

// MaxSpans caps the number of redaction spans accepted in a single field.
const MaxSpans = 1000

// LengthBucket is the coarse size category of a redacted span. Rendering
// uses the bucket, never the exact character count, so the output leaks at
// most three length classes.
type LengthBucket int

const (
	BucketShort LengthBucket = iota
	BucketMedium
	BucketLong
)

// Bucket thresholds in runes.
const (
	mediumThreshold = 16
	longThreshold   = 64
)

// String returns the bucket label.
func (b LengthBucket) String() string {
	switch b {
	case BucketShort:
		return "short"
	case BucketMedium:
		return "medium"
	case BucketLong:
		return "long"
	default:
		return "unknown"
	}
}

// bucketFor classifies a span by rune count.
func bucketFor(span string) LengthBucket {
	n := utf8.RuneCountInString(span)
	switch {
	case n < mediumThreshold:
		return BucketShort
	case n < longThreshold:
		return BucketMedium
	default:
		return BucketLong
	}
}

// Segment is one run of text in original order. For redacted segments Text
// is always empty; only the bucket survives.
type Segment struct {
	Text     string
	Redacted bool
	Bucket   LengthBucket
}

// SyntaxError reports malformed redaction markup. It blocks the pipeline:
// ambiguous redaction intent must never render as clear text.
type SyntaxError struct {
	Section string
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("redaction syntax error in %s at offset %d: %s", e.Section, e.Offset, e.Message)
	}
	return fmt.Sprintf("redaction syntax error at offset %d: %s", e.Offset, e.Message)
}

// Parse scans text left to right, tracking inside/outside state, and
// returns the ordered plain and redacted segments. An unmatched marker at
// end of input, or an empty span, is a SyntaxError.
func Parse(text string) ([]Segment, error) {
	var segments []Segment
	inside := false
	spanStart := 0 // offset of the opening marker, for error reporting
	spans := 0
	rest := text
	consumed := 0

	for {
		idx := strings.Index(rest, Marker)
		if idx == -1 {
			break
		}
		chunk := rest[:idx]
		if inside {
			if chunk == "" {
				return nil, &SyntaxError{Offset: spanStart, Message: "empty redaction span"}
			}
			spans++
			if spans > MaxSpans {
				return nil, &SyntaxError{Offset: spanStart, Message: fmt.Sprintf("more than %d redaction spans", MaxSpans)}
			}
			segments = append(segments, Segment{Redacted: true, Bucket: bucketFor(chunk)})
		} else {
			if chunk != "" {
				segments = append(segments, Segment{Text: chunk})
			}
			spanStart = consumed + idx
		}
		inside = !inside
		consumed += idx + len(Marker)
		rest = rest[idx+len(Marker):]
	}

	if inside {
		return nil, &SyntaxError{Offset: spanStart, Message: "unmatched redaction marker"}
	}
	if rest != "" {
		segments = append(segments, Segment{Text: rest})
	}
	return segments, nil
}

// ParseSections parses every section body and returns the per-section
// segment lists. Errors are collected across all sections so the caller
// sees every malformed field at once.
func ParseSections(sections map[string]string) (map[string][]Segment, []error) {
	parsed := make(map[string][]Segment, len(sections))
	var errs []error
	for name, body := range sections {
		segments, err := Parse(body)
		if err != nil {
			if se, ok := err.(*SyntaxError); ok {
				se.Section = name
			}
			errs = append(errs, err)
			continue
		}
		parsed[name] = segments
	}
	return parsed, errs
}

// CountRedactions returns the number of redacted segments across all
// parsed sections.
func CountRedactions(parsed map[string][]Segment) int {
	total := 0
	for _, segments := range parsed {
		for _, seg := range segments {
			if seg.Redacted {
				total++
			}
		}
	}
	return total
}
