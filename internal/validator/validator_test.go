// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"errors"
	"strings"
	"testing"

	"anubis-dossier/internal/record"
)

func validRecord() *record.IntelligenceRecord {
	return &record.IntelligenceRecord{
		ID:             "REC-2026-0001",
		TargetName:     "Kestrel Vane",
		Aliases:        []string{"Night Heron"},
		Classification: "SECRET",
		TLP:            "AMBER",
		Sections: map[string]string{
			record.SectionExecutiveSummary: "Subject is an active facilitator.",
			record.SectionTargetProfile:    "Operates out of the port district.",
		},
		Sources: []record.SourceEntry{
			{Platform: "forum", Identifier: "kv_88", AdmiraltyCode: "B2"},
		},
		Indicators: record.ThreatIndicators{NetworkCentrality: "medium"},
	}
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	v := New()
	validated, err := v.Validate(validRecord())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if validated.Classification != record.Secret {
		t.Errorf("expected SECRET, got %s", validated.Classification)
	}
	if validated.TLP != record.TLPAmber {
		t.Errorf("expected AMBER, got %s", validated.TLP)
	}
	if validated.TargetName != "Kestrel Vane" {
		t.Errorf("unexpected target name: %q", validated.TargetName)
	}
}

func TestValidate_NilRecord(t *testing.T) {
	if _, err := New().Validate(nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	rec := validRecord()
	rec.ID = ""
	rec.TargetName = "x"
	rec.Classification = "MEDIUM RARE"
	rec.TLP = "PURPLE"

	_, err := New().Validate(rec)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Errors) < 4 {
		t.Errorf("expected at least 4 collected violations, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidate_MarkingParsing(t *testing.T) {
	cases := []struct {
		name           string
		classification string
		tlp            string
		wantErr        bool
	}{
		{"case-insensitive classification", "top secret", "red", false},
		{"whitespace tolerated", " SECRET ", " GREEN ", false},
		{"unknown classification", "ULTRA", "WHITE", true},
		{"unknown tlp", "SECRET", "BLUE", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			rec.Classification = tc.classification
			rec.TLP = tc.tlp
			_, err := New().Validate(rec)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_RequiredSections(t *testing.T) {
	rec := validRecord()
	delete(rec.Sections, record.SectionExecutiveSummary)

	_, err := New().Validate(rec)
	if err == nil {
		t.Fatal("expected error for missing Executive Summary")
	}
}

func TestValidate_UnknownSectionRejected(t *testing.T) {
	rec := validRecord()
	rec.Sections["Shopping List"] = "milk, eggs"

	_, err := New().Validate(rec)
	if err == nil {
		t.Fatal("expected error for unknown section name")
	}
}

func TestValidate_SectionLengthCap(t *testing.T) {
	rec := validRecord()
	rec.Sections[record.SectionTravelHistory] = strings.Repeat("a", MaxSectionLength+1)

	_, err := New().Validate(rec)
	if err == nil {
		t.Fatal("expected error for oversized section")
	}
}

func TestValidate_AdmiraltyCodes(t *testing.T) {
	valid := []string{"A1", "F4", "b2", " C3 ", ""}
	invalid := []string{"G1", "A5", "AA", "1A", "A", "B22"}

	for _, code := range valid {
		rec := validRecord()
		rec.Sources[0].AdmiraltyCode = code
		if _, err := New().Validate(rec); err != nil {
			t.Errorf("code %q should be accepted: %v", code, err)
		}
	}
	for _, code := range invalid {
		rec := validRecord()
		rec.Sources[0].AdmiraltyCode = code
		if _, err := New().Validate(rec); err == nil {
			t.Errorf("code %q should be rejected", code)
		}
	}
}

func TestValidate_OrdinalIndicators(t *testing.T) {
	rec := validRecord()
	rec.Indicators.BehavioralRisk = "extreme"
	if _, err := New().Validate(rec); err == nil {
		t.Fatal("expected error for out-of-range ordinal")
	}

	rec = validRecord()
	rec.Indicators.BehavioralRisk = ""
	if _, err := New().Validate(rec); err != nil {
		t.Fatalf("empty ordinal means not collected and must pass: %v", err)
	}
}

func TestValidate_NegativeCounts(t *testing.T) {
	rec := validRecord()
	rec.RelatedRecordCount = -1
	if _, err := New().Validate(rec); err == nil {
		t.Fatal("expected error for negative related record count")
	}
}

func TestValidate_SanitizesControlCharsAndMarkup(t *testing.T) {
	rec := validRecord()
	rec.Sections[record.SectionExecutiveSummary] = "clean\x00 <script>body</script> text\nnext line"

	validated, err := New().Validate(rec)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	body := validated.Sections[record.SectionExecutiveSummary]
	if strings.ContainsAny(body, "<>\x00") {
		t.Errorf("sanitized body still contains markup or control chars: %q", body)
	}
	if !strings.Contains(body, "\n") {
		t.Error("newlines must survive sanitization")
	}
}

func TestValidate_AliasRules(t *testing.T) {
	rec := validRecord()
	rec.Aliases = make([]string, MaxAliases+1)
	for i := range rec.Aliases {
		rec.Aliases[i] = "alias"
	}
	if _, err := New().Validate(rec); err == nil {
		t.Fatal("expected error above alias cap")
	}

	rec = validRecord()
	rec.Aliases = []string{strings.Repeat("a", MaxAliasLength+1)}
	if _, err := New().Validate(rec); err == nil {
		t.Fatal("expected error for oversized alias")
	}
}

func TestNewWithLimits_Overrides(t *testing.T) {
	v := NewWithLimits(50, 0, 0, 0)
	rec := validRecord()
	rec.Sections[record.SectionTargetProfile] = strings.Repeat("a", 51)
	if _, err := v.Validate(rec); err == nil {
		t.Fatal("expected error with lowered section cap")
	}

	v = NewWithLimits(0, 0, 2, 0)
	rec = validRecord()
	rec.Aliases = []string{"one", "two", "three"}
	if _, err := v.Validate(rec); err == nil {
		t.Fatal("expected error with lowered alias cap")
	}

	// Non-positive name cap falls back to the default
	rec = validRecord()
	rec.TargetName = strings.Repeat("a", 150)
	if _, err := v.Validate(rec); err != nil {
		t.Fatalf("default name cap should accept 150 chars: %v", err)
	}
}
