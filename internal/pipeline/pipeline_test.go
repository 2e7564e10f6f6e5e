// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anubis-dossier/internal/audit"
	"anubis-dossier/internal/config"
	"anubis-dossier/internal/record"
	"anubis-dossier/internal/render"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func testRecord() *record.IntelligenceRecord {
	return &record.IntelligenceRecord{
		ID:             "REC-2026-0042",
		TargetName:     "Kestrel Vane",
		Classification: "SECRET",
		TLP:            "AMBER",
		Sections: map[string]string{
			record.SectionExecutiveSummary: "Name: ||John Doe||, Age: 34",
			record.SectionTargetProfile:    "Operates out of the port district.",
		},
		Indicators:         record.ThreatIndicators{KnownIncident: true},
		RelatedRecordCount: 3,
	}
}

func auditEvents(t *testing.T, buf *bytes.Buffer) []audit.Event {
	t.Helper()
	var events []audit.Event
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev audit.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid audit event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestRun_CompleteLifecycle(t *testing.T) {
	cfg := testConfig(t)
	var auditBuf bytes.Buffer
	p := New(cfg, audit.NewRecorder(&auditBuf))

	result := p.Run(testRecord())
	if result.Err != nil {
		t.Fatalf("Run failed: %v", result.Err)
	}
	if result.State != StateComplete {
		t.Errorf("expected COMPLETE, got %s", result.State)
	}
	if result.ArtifactPath == "" {
		t.Fatal("expected artifact path")
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Fatalf("artifact not on disk: %v", err)
	}
	if result.Document.RedactionCount != 1 {
		t.Errorf("expected 1 redaction, got %d", result.Document.RedactionCount)
	}

	// Exactly one terminal audit event
	terminal := 0
	for _, ev := range auditEvents(t, &auditBuf) {
		if ev.Stage == "pipeline" {
			terminal++
			if ev.Outcome != audit.OutcomeSuccess {
				t.Errorf("expected success outcome, got %s", ev.Outcome)
			}
		}
	}
	if terminal != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminal)
	}
}

func TestRun_ArtifactTextRedactsMarkedSpans(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	// The Executive Summary carries "Name: ||John Doe||, Age: 34"
	result := p.Run(testRecord())
	if result.Err != nil {
		t.Fatalf("Run failed: %v", result.Err)
	}

	data, err := os.ReadFile(result.ArtifactPath)
	if err != nil {
		t.Fatal(err)
	}

	leaked, err := render.ContainsText(data, "John Doe")
	if err != nil {
		t.Fatalf("inspection failed: %v", err)
	}
	if leaked {
		t.Error("marked span appears in clear text in the assembled artifact")
	}

	for _, want := range []string{"Name: [REDACTED], Age: 34", "SECRET", "Operates out of the port district."} {
		present, err := render.ContainsText(data, want)
		if err != nil {
			t.Fatalf("inspection failed: %v", err)
		}
		if !present {
			t.Errorf("expected %q in extracted artifact text", want)
		}
	}
}

func TestRun_ValidationFailureWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	var auditBuf bytes.Buffer
	p := New(cfg, audit.NewRecorder(&auditBuf))

	rec := testRecord()
	rec.Classification = "ULTRA"
	result := p.Run(rec)

	if result.Err == nil {
		t.Fatal("expected failure")
	}
	if result.State != StateFailed {
		t.Errorf("expected FAILED, got %s", result.State)
	}
	var se *StageError
	if !errors.As(result.Err, &se) || se.Stage != StageValidation {
		t.Errorf("expected validation stage error, got %v", result.Err)
	}

	entries, err := os.ReadDir(cfg.Output.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no artifact may be written on failure, found %d entries", len(entries))
	}

	terminal := 0
	for _, ev := range auditEvents(t, &auditBuf) {
		if ev.Stage == "pipeline" {
			terminal++
			if ev.Outcome != audit.OutcomeFailure {
				t.Errorf("expected failure outcome, got %s", ev.Outcome)
			}
		}
	}
	if terminal != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminal)
	}
}

func TestRun_MalformedRedactionFailsClosed(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	rec := testRecord()
	rec.Sections[record.SectionTargetProfile] = "leads to ||unclosed span"
	result := p.Run(rec)

	if result.Err == nil {
		t.Fatal("expected failure for unmatched redaction marker")
	}
	var se *StageError
	if !errors.As(result.Err, &se) || se.Stage != StageRedaction {
		t.Errorf("expected redaction stage error, got %v", result.Err)
	}
	if result.ArtifactPath != "" {
		t.Error("no artifact may be produced when redaction intent is ambiguous")
	}
}

func TestRun_ImageRejectionDoesNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	rec := testRecord()
	rec.Images = []record.ImageAsset{
		{Name: "junk.bin", Data: []byte("not an image at all")},
	}
	result := p.Run(rec)

	if result.Err != nil {
		t.Fatalf("image rejection must not fail the run: %v", result.Err)
	}
	if len(result.ImageErrors) != 1 {
		t.Errorf("expected 1 image rejection, got %d", len(result.ImageErrors))
	}
	if result.Document.ImageCount != 0 {
		t.Errorf("rejected image must not be counted, got %d", result.Document.ImageCount)
	}
}

func TestRun_EncryptionWithoutPasswordFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.EncryptionEnabled = true
	cfg.Security.UserPassword = ""
	p := New(cfg, nil)

	result := p.Run(testRecord())
	if result.Err == nil {
		t.Fatal("expected encryption stage failure")
	}
	var se *StageError
	if !errors.As(result.Err, &se) || se.Stage != StageEncryption {
		t.Errorf("expected encryption stage error, got %v", result.Err)
	}
}

func TestRun_EncryptedArtifact(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.EncryptionEnabled = true
	cfg.Security.UserPassword = "open-sesame"
	p := New(cfg, nil)

	result := p.Run(testRecord())
	if result.Err != nil {
		t.Fatalf("Run failed: %v", result.Err)
	}
	if !result.Artifact.Encrypted {
		t.Error("artifact should be flagged encrypted")
	}
}

func TestBatchRun_Independence(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil)

	bad := testRecord()
	bad.ID = "REC-BAD"
	bad.TLP = "PURPLE"

	results := p.BatchRun([]*record.IntelligenceRecord{testRecord(), bad, testRecord()})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("valid records must complete despite a failing sibling")
	}
	if results[1].Err == nil {
		t.Error("invalid record must fail")
	}
}

func TestWriteArtifact_AtomicAndNamed(t *testing.T) {
	dir := t.TempDir()
	doc := &record.StructuredDocument{RecordID: "REC/2026:0042"}
	artifact := &record.RenderedArtifact{
		Data:   []byte("%PDF-1.7 test"),
		SHA256: "abcdef0123456789",
	}

	path, err := WriteArtifact(dir, doc, artifact)
	if err != nil {
		t.Fatalf("WriteArtifact failed: %v", err)
	}

	name := filepath.Base(path)
	if strings.ContainsAny(name, "/:") {
		t.Errorf("unsafe characters in artifact name: %q", name)
	}
	if !strings.Contains(name, "abcdef01") {
		t.Errorf("expected content-hash prefix in name: %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, artifact.Data) {
		t.Error("artifact bytes corrupted on write")
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the output dir, got %d entries", len(entries))
	}
}
