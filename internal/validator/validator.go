// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package validator checks raw intelligence records against field-level
// constraints before any further processing. Validation is exhaustive: a
// single pass collects every violation so the caller can correct all of
// them in one round.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"anubis-dossier/internal/record"
)

// Field length limits. Free text beyond these caps is a violation, not a
// silent truncation.
const (
	MaxNameLength    = 200
	MinNameLength    = 2
	MaxAliasLength   = 100
	MaxSectionLength = 10000
	MaxAliases       = 20
	MaxSources       = 100
)

var admiraltyCodePattern = regexp.MustCompile(`^[A-F][1-4]$`)

// RequiredSections must be non-empty in every record.
var RequiredSections = []string{
	record.SectionExecutiveSummary,
	record.SectionTargetProfile,
}

// FieldError describes one field-level constraint violation.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

// ValidationError is the batch of all violations found in one record.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Error())
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve.Errors))
}

// Validator applies field-level constraints to raw records.
type Validator struct {
	maxSectionLength int
	maxNameLength    int
	maxAliases       int
	maxSources       int
}

// New creates a Validator with the default limits.
func New() *Validator {
	return &Validator{
		maxSectionLength: MaxSectionLength,
		maxNameLength:    MaxNameLength,
		maxAliases:       MaxAliases,
		maxSources:       MaxSources,
	}
}

// NewWithLimits creates a Validator with caller-supplied caps. Non-positive
// values fall back to the defaults.
func NewWithLimits(maxSectionLength, maxNameLength, maxAliases, maxSources int) *Validator {
	v := New()
	if maxSectionLength > 0 {
		v.maxSectionLength = maxSectionLength
	}
	if maxNameLength > 0 {
		v.maxNameLength = maxNameLength
	}
	if maxAliases > 0 {
		v.maxAliases = maxAliases
	}
	if maxSources > 0 {
		v.maxSources = maxSources
	}
	return v
}

// Validate checks every field of rec and returns either a fully validated
// record or the complete list of violations, never a mix. The input record
// is not modified; sanitized text lands in the returned ValidatedRecord.
func (v *Validator) Validate(rec *record.IntelligenceRecord) (*record.ValidatedRecord, error) {
	var errs []FieldError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if rec == nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "record", Message: "record is nil"}}}
	}

	if strings.TrimSpace(rec.ID) == "" {
		add("id", "record identifier is required")
	}

	name := sanitizeText(rec.TargetName)
	switch {
	case len(name) < MinNameLength:
		add("target_name", "must be at least %d characters", MinNameLength)
	case len(name) > v.maxNameLength:
		add("target_name", "must not exceed %d characters", v.maxNameLength)
	}

	if len(rec.Aliases) > v.maxAliases {
		add("aliases", "at most %d aliases allowed", v.maxAliases)
	}
	aliases := make([]string, 0, len(rec.Aliases))
	for i, alias := range rec.Aliases {
		a := sanitizeText(alias)
		if len(a) > MaxAliasLength {
			add(fmt.Sprintf("aliases[%d]", i), "must not exceed %d characters", MaxAliasLength)
			continue
		}
		if a != "" {
			aliases = append(aliases, a)
		}
	}

	classification, err := record.ParseClassification(rec.Classification)
	if err != nil {
		add("classification", "%v", err)
	}
	tlp, err := record.ParseTLP(rec.TLP)
	if err != nil {
		add("tlp", "%v", err)
	}

	sections := make(map[string]string, len(rec.Sections))
	for sectionName, body := range rec.Sections {
		if !record.IsCanonicalSection(sectionName) {
			add("sections", "unknown section %q", sectionName)
			continue
		}
		clean := sanitizeText(body)
		if len(clean) > v.maxSectionLength {
			add(fmt.Sprintf("sections[%s]", sectionName), "must not exceed %d characters", v.maxSectionLength)
			continue
		}
		sections[sectionName] = clean
	}
	for _, required := range RequiredSections {
		if strings.TrimSpace(sections[required]) == "" {
			add(fmt.Sprintf("sections[%s]", required), "required section is empty")
		}
	}

	if len(rec.Sources) > v.maxSources {
		add("sources", "at most %d source entries allowed", v.maxSources)
	}
	sources := make([]record.SourceEntry, 0, len(rec.Sources))
	for i, src := range rec.Sources {
		entry := record.SourceEntry{
			Platform:      sanitizeText(src.Platform),
			Identifier:    sanitizeText(src.Identifier),
			AdmiraltyCode: strings.ToUpper(strings.TrimSpace(src.AdmiraltyCode)),
		}
		if entry.Platform == "" {
			add(fmt.Sprintf("sources[%d].platform", i), "platform is required")
		}
		if entry.AdmiraltyCode != "" && !admiraltyCodePattern.MatchString(entry.AdmiraltyCode) {
			add(fmt.Sprintf("sources[%d].admiralty_code", i), "invalid Admiralty code %q, expected a letter A-F followed by a digit 1-4", entry.AdmiraltyCode)
		}
		sources = append(sources, entry)
	}

	if err := validateOrdinal(rec.Indicators.NetworkCentrality); err != nil {
		add("indicators.network_centrality", "%v", err)
	}
	if err := validateOrdinal(rec.Indicators.BehavioralRisk); err != nil {
		add("indicators.behavioral_risk", "%v", err)
	}
	if rec.RelatedRecordCount < 0 {
		add("related_record_count", "must not be negative")
	}
	if rec.CrossReferenceCount < 0 {
		add("cross_reference_count", "must not be negative")
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &record.ValidatedRecord{
		ID:                  strings.TrimSpace(rec.ID),
		TargetName:          name,
		Aliases:             aliases,
		Classification:      classification,
		TLP:                 tlp,
		Sections:            sections,
		Sources:             sources,
		Indicators:          rec.Indicators,
		RelatedRecordCount:  rec.RelatedRecordCount,
		CrossReferenceCount: rec.CrossReferenceCount,
		Images:              rec.Images,
	}, nil
}

// validateOrdinal checks a three-level ordinal indicator value. Empty means
// not collected and is allowed.
func validateOrdinal(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "low", "medium", "high":
		return nil
	default:
		return fmt.Errorf("must be one of low, medium, high (got %q)", value)
	}
}

// sanitizeText strips control characters and renderer-significant markup
// from free text. Newlines and tabs survive; everything else below 0x20,
// DEL, and the null byte are removed, and angle brackets are dropped so no
// downstream template can interpret embedded tags.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '<' || r == '>':
			// drop markup
		case unicode.IsControl(r):
			// drop control characters
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
