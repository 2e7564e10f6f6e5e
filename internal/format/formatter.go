// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package format assembles validated, enriched, and redaction-parsed data
// into the canonical structured document handed to the rendering layer.
// The assembly is deterministic: no I/O, no timestamps, and identical
// inputs always produce identical documents.
package format

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"anubis-dossier/internal/record"
	"anubis-dossier/internal/redaction"
)

// EmptySectionPlaceholder renders in place of unpopulated sections so every
// dossier has the same stable fourteen-section layout and a missing section
// is indistinguishable from a deliberately empty one.
const EmptySectionPlaceholder = "No data collected."

// Fixed-width redaction blocks by span length bucket. The block width leaks
// at most the coarse bucket, never the exact span length.
var redactionBlocks = map[redaction.LengthBucket]string{
	redaction.BucketShort:  "[REDACTED]",
	redaction.BucketMedium: "[REDACTED-BLOCK]",
	redaction.BucketLong:   "[REDACTED-SECTION]",
}

// Formatter builds structured documents under a caveat policy.
type Formatter struct {
	policy CaveatPolicy
}

// New creates a Formatter with the default caveat policy.
func New() *Formatter {
	return &Formatter{policy: DefaultCaveatPolicy()}
}

// NewWithPolicy creates a Formatter with a caller-supplied caveat policy.
// The merge is per key: an override supplying only some entries keeps the
// default wording for the rest, so no marking ever renders an empty caveat.
func NewWithPolicy(policy CaveatPolicy) *Formatter {
	defaults := DefaultCaveatPolicy()
	return &Formatter{policy: CaveatPolicy{
		Handling:        mergePolicyTable(defaults.Handling, policy.Handling),
		TLPRestrictions: mergePolicyTable(defaults.TLPRestrictions, policy.TLPRestrictions),
		Distribution:    mergePolicyTable(defaults.Distribution, policy.Distribution),
	}}
}

func mergePolicyTable(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Format assembles the structured document from the validated record, its
// enrichment result, the redaction-parsed section bodies, and the count of
// sanitized images that will be embedded. Inputs are already validated;
// this stage introduces no new errors.
func (f *Formatter) Format(rec *record.ValidatedRecord, enrichment record.EnrichmentResult, parsed map[string][]redaction.Segment, imageCount int) *record.StructuredDocument {
	banner := rec.Classification.String()
	caveats := f.policy.Caveats(rec.Classification, rec.TLP)

	sections := make([]record.DocumentSection, 0, len(record.SectionOrder))
	for _, title := range record.SectionOrder {
		body := renderSegments(parsed[title])
		if title == record.SectionThreatAssessment {
			body = joinNonEmpty(threatAssessmentSummary(enrichment), body)
		}
		if strings.TrimSpace(body) == "" {
			sections = append(sections, record.DocumentSection{Title: title, Body: EmptySectionPlaceholder, Empty: true})
			continue
		}
		sections = append(sections, record.DocumentSection{Title: title, Body: body})
	}

	return &record.StructuredDocument{
		RecordID:         rec.ID,
		ControlNumber:    ControlNumber(rec.ID),
		Banner:           banner,
		Caveats:          caveats,
		CaveatLine:       strings.Join(caveats, " // "),
		Watermark:        Watermark(rec.Classification, rec.TLP),
		Declassification: declassificationNotice(rec.Classification),
		Distribution:     f.policy.DistributionStatement(rec.Classification),
		TargetName:       rec.TargetName,
		Aliases:          rec.Aliases,
		Enrichment:       enrichment,
		Sections:         sections,
		RedactionCount:   redaction.CountRedactions(parsed),
		ImageCount:       imageCount,
	}
}

// Watermark derives the page watermark from the marking pair and the
// distribution caveat short form. Same inputs, same string.
func Watermark(classification record.ClassificationMarking, tlp record.TLPMarking) string {
	caveat := "OFFICIAL USE"
	if classification >= record.Secret {
		caveat = "NOFORN"
	}
	if classification == record.Unclassified {
		caveat = "PUBLIC"
	}
	return fmt.Sprintf("%s // TLP:%s // %s", classification, tlp, caveat)
}

// ControlNumber derives the document control number from the record
// identifier.
func ControlNumber(recordID string) string {
	sum := sha256.Sum256([]byte(recordID))
	return fmt.Sprintf("DCN-%X", sum[:6])
}

// renderSegments joins a parsed segment sequence into the rendered section
// body, substituting the fixed-width block for each redacted span.
func renderSegments(segments []redaction.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range segments {
		if seg.Redacted {
			b.WriteString(redactionBlocks[seg.Bucket])
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// threatAssessmentSummary renders the derived assessment block prepended to
// the Threat Assessment section.
func threatAssessmentSummary(e record.EnrichmentResult) string {
	return fmt.Sprintf(
		"THREAT SCORE: %d/100\nRISK TIER: %s (%s)\nRESPONSE WINDOW: %s\nCOLLECTION VELOCITY: %s\nCROSS-REFERENCES: %d",
		e.ThreatScore, e.RiskTier, e.Priority, e.ResponseWindow, e.CollectionVelocity, e.CrossReferenceCount,
	)
}

// declassificationNotice returns the standing declassification marking.
// Wording is deliberately date-free so document content stays reproducible.
func declassificationNotice(classification record.ClassificationMarking) string {
	if classification == record.Unclassified {
		return "PUBLIC RELEASE AUTHORIZED"
	}
	return "DECLASSIFY ON: OADR — Originating Agency's Determination Required"
}

// joinNonEmpty joins the non-empty parts with a blank line.
func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
