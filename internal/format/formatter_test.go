// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"reflect"
	"strings"
	"testing"

	"anubis-dossier/internal/enrich"
	"anubis-dossier/internal/record"
	"anubis-dossier/internal/redaction"
)

func validatedRecord() *record.ValidatedRecord {
	return &record.ValidatedRecord{
		ID:             "REC-2026-0042",
		TargetName:     "Kestrel Vane",
		Aliases:        []string{"Night Heron"},
		Classification: record.Secret,
		TLP:            record.TLPAmber,
		Sections: map[string]string{
			record.SectionExecutiveSummary: "Name: ||John Doe||, Age: 34",
			record.SectionTargetProfile:    "Operates out of the port district.",
		},
		Indicators: record.ThreatIndicators{KnownIncident: true, NetworkCentrality: "high", BehavioralRisk: "medium"},
	}
}

func buildDocument(t *testing.T, rec *record.ValidatedRecord) *record.StructuredDocument {
	t.Helper()
	parsed, errs := redaction.ParseSections(rec.Sections)
	if len(errs) > 0 {
		t.Fatalf("redaction parse failed: %v", errs)
	}
	return New().Format(rec, enrich.Enrich(rec), parsed, 1)
}

func TestFormat_RedactedSpansRenderAsBlocks(t *testing.T) {
	doc := buildDocument(t, validatedRecord())

	var summary string
	for _, s := range doc.Sections {
		if s.Title == record.SectionExecutiveSummary {
			summary = s.Body
		}
	}
	if summary != "Name: [REDACTED], Age: 34" {
		t.Errorf("unexpected rendered summary: %q", summary)
	}
	if strings.Contains(summary, "John Doe") {
		t.Error("clear text leaked into rendered section")
	}
	if doc.RedactionCount != 1 {
		t.Errorf("expected 1 redaction, got %d", doc.RedactionCount)
	}
}

func TestFormat_BucketBlockWidths(t *testing.T) {
	rec := validatedRecord()
	rec.Sections[record.SectionBehavioralAnalysis] = "a ||" + strings.Repeat("m", 20) + "|| b ||" + strings.Repeat("l", 80) + "|| c"

	doc := buildDocument(t, rec)
	var body string
	for _, s := range doc.Sections {
		if s.Title == record.SectionBehavioralAnalysis {
			body = s.Body
		}
	}
	if !strings.Contains(body, "[REDACTED-BLOCK]") {
		t.Error("medium span should render as [REDACTED-BLOCK]")
	}
	if !strings.Contains(body, "[REDACTED-SECTION]") {
		t.Error("long span should render as [REDACTED-SECTION]")
	}
}

func TestFormat_AllSectionsInCanonicalOrder(t *testing.T) {
	doc := buildDocument(t, validatedRecord())

	if len(doc.Sections) != len(record.SectionOrder) {
		t.Fatalf("expected %d sections, got %d", len(record.SectionOrder), len(doc.Sections))
	}
	for i, s := range doc.Sections {
		if s.Title != record.SectionOrder[i] {
			t.Errorf("section %d: expected %q, got %q", i, record.SectionOrder[i], s.Title)
		}
	}

	// Unpopulated sections carry the placeholder and the Empty flag
	for _, s := range doc.Sections {
		if s.Title == record.SectionTravelHistory {
			if !s.Empty || s.Body != EmptySectionPlaceholder {
				t.Errorf("unpopulated section should render placeholder, got %+v", s)
			}
		}
	}
}

func TestFormat_ThreatAssessmentSummaryPresent(t *testing.T) {
	doc := buildDocument(t, validatedRecord())
	for _, s := range doc.Sections {
		if s.Title == record.SectionThreatAssessment {
			if !strings.Contains(s.Body, "THREAT SCORE: 85/100") {
				t.Errorf("expected derived score in assessment, got %q", s.Body)
			}
			if !strings.Contains(s.Body, "RISK TIER: CRITICAL (P1)") {
				t.Errorf("expected tier and priority in assessment, got %q", s.Body)
			}
			return
		}
	}
	t.Fatal("Threat Assessment section missing")
}

func TestFormat_BannerAndCaveats(t *testing.T) {
	doc := buildDocument(t, validatedRecord())

	if doc.Banner != "SECRET" {
		t.Errorf("expected SECRET banner, got %q", doc.Banner)
	}
	// SECRET // TLP:AMBER carries handling plus GREEN and AMBER restrictions
	if len(doc.Caveats) != 3 {
		t.Fatalf("expected 3 caveats, got %d: %v", len(doc.Caveats), doc.Caveats)
	}
	if !strings.Contains(doc.CaveatLine, "NOFORN") {
		t.Errorf("expected NOFORN in caveat line: %q", doc.CaveatLine)
	}
	if !strings.Contains(doc.CaveatLine, "TLP:AMBER") || !strings.Contains(doc.CaveatLine, "TLP:GREEN") {
		t.Errorf("expected cumulative TLP restrictions: %q", doc.CaveatLine)
	}
}

func TestCaveats_MonotonicInTLP(t *testing.T) {
	policy := DefaultCaveatPolicy()
	classifications := []record.ClassificationMarking{record.Unclassified, record.Confidential, record.Secret, record.TopSecret}
	tlps := []record.TLPMarking{record.TLPWhite, record.TLPGreen, record.TLPAmber, record.TLPRed}

	for _, c := range classifications {
		prev := -1
		for _, tlp := range tlps {
			caveats := policy.Caveats(c, tlp)
			if len(caveats) <= prev {
				t.Errorf("%s/%s: caveat set shrank from %d to %d", c, tlp, prev, len(caveats))
			}
			prev = len(caveats)
		}
	}
}

func TestFormat_Deterministic(t *testing.T) {
	rec := validatedRecord()
	first := buildDocument(t, rec)
	for i := 0; i < 3; i++ {
		next := buildDocument(t, rec)
		if !reflect.DeepEqual(first, next) {
			t.Fatal("identical input must produce identical documents")
		}
	}
}

func TestControlNumber_StableAndDerived(t *testing.T) {
	a := ControlNumber("REC-2026-0042")
	b := ControlNumber("REC-2026-0042")
	c := ControlNumber("REC-2026-0043")

	if a != b {
		t.Error("control number must be stable for the same record ID")
	}
	if a == c {
		t.Error("different record IDs must yield different control numbers")
	}
	if !strings.HasPrefix(a, "DCN-") || len(a) != len("DCN-")+12 {
		t.Errorf("unexpected control number shape: %q", a)
	}
}

func TestWatermark(t *testing.T) {
	cases := []struct {
		classification record.ClassificationMarking
		tlp            record.TLPMarking
		want           string
	}{
		{record.Unclassified, record.TLPWhite, "UNCLASSIFIED // TLP:WHITE // PUBLIC"},
		{record.Confidential, record.TLPGreen, "CONFIDENTIAL // TLP:GREEN // OFFICIAL USE"},
		{record.Secret, record.TLPAmber, "SECRET // TLP:AMBER // NOFORN"},
		{record.TopSecret, record.TLPRed, "TOP SECRET // TLP:RED // NOFORN"},
	}
	for _, tc := range cases {
		if got := Watermark(tc.classification, tc.tlp); got != tc.want {
			t.Errorf("Watermark(%s, %s) = %q, want %q", tc.classification, tc.tlp, got, tc.want)
		}
	}
}

func TestFormat_DeclassificationAndDistribution(t *testing.T) {
	doc := buildDocument(t, validatedRecord())
	if !strings.Contains(doc.Declassification, "OADR") {
		t.Errorf("expected OADR declassification for classified record: %q", doc.Declassification)
	}
	if !strings.HasPrefix(doc.Distribution, "DISTRIBUTION:") {
		t.Errorf("unexpected distribution statement: %q", doc.Distribution)
	}

	rec := validatedRecord()
	rec.Classification = record.Unclassified
	rec.TLP = record.TLPWhite
	doc = buildDocument(t, rec)
	if doc.Declassification != "PUBLIC RELEASE AUTHORIZED" {
		t.Errorf("unexpected unclassified declassification: %q", doc.Declassification)
	}
}

func TestNewWithPolicy_OverridesAndFallbacks(t *testing.T) {
	f := NewWithPolicy(CaveatPolicy{
		Handling: map[string]string{"SECRET": "HANDLE WITH CARE"},
	})
	rec := validatedRecord()
	parsed, _ := redaction.ParseSections(rec.Sections)
	doc := f.Format(rec, enrich.Enrich(rec), parsed, 0)

	if doc.Caveats[0] != "HANDLE WITH CARE" {
		t.Errorf("expected handling override, got %q", doc.Caveats[0])
	}
	// TLP table absent from the override falls back to defaults
	if !strings.Contains(doc.CaveatLine, "TLP:AMBER") {
		t.Errorf("expected default TLP restrictions to apply: %q", doc.CaveatLine)
	}
}

func TestNewWithPolicy_PartialOverrideKeepsOtherKeys(t *testing.T) {
	// Overriding one handling entry must not blank the caveats for the
	// classifications the override does not mention.
	f := NewWithPolicy(CaveatPolicy{
		Handling: map[string]string{"UNCLASSIFIED": "CLEARED FOR RELEASE"},
	})
	rec := validatedRecord()
	rec.Classification = record.Secret
	parsed, _ := redaction.ParseSections(rec.Sections)
	doc := f.Format(rec, enrich.Enrich(rec), parsed, 0)

	if doc.Caveats[0] == "" {
		t.Fatal("partial override blanked the SECRET handling caveat")
	}
	if doc.Caveats[0] != DefaultCaveatPolicy().Handling[record.Secret.String()] {
		t.Errorf("expected default SECRET handling, got %q", doc.Caveats[0])
	}
	if strings.Contains(doc.CaveatLine, "//  //") {
		t.Errorf("empty caveat rendered in banner line: %q", doc.CaveatLine)
	}
}
