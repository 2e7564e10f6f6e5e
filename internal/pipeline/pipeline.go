// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline orchestrates dossier assembly: validation, redaction
// parsing, image sanitization, enrichment, formatting, rendering, and
// optional encryption, with an audit event per stage. A record either
// reaches COMPLETE or stops at the first failing stage; no partial
// artifact is ever written.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"anubis-dossier/internal/audit"
	"anubis-dossier/internal/config"
	"anubis-dossier/internal/enrich"
	"anubis-dossier/internal/format"
	"anubis-dossier/internal/images"
	"anubis-dossier/internal/record"
	"anubis-dossier/internal/redaction"
	"anubis-dossier/internal/render"
	"anubis-dossier/internal/validator"
)

// Stage identifies a pipeline phase for errors and audit events.
type Stage string

const (
	StageValidation Stage = "validation"
	StageRedaction  Stage = "redaction"
	StageImages     Stage = "images"
	StageEnrichment Stage = "enrichment"
	StageFormatting Stage = "formatting"
	StageRendering  Stage = "rendering"
	StageEncryption Stage = "encryption"
	StageOutput     Stage = "output"
)

// State is the record's position in the assembly lifecycle.
type State string

const (
	StateDraft     State = "DRAFT"
	StateValidated State = "VALIDATED"
	StateEnriched  State = "ENRICHED"
	StateFormatted State = "FORMATTED"
	StateRendered  State = "RENDERED"
	StateEncrypted State = "ENCRYPTED"
	StateComplete  State = "COMPLETE"
	StateFailed    State = "FAILED"
)

// Result is the outcome of one pipeline run. On failure, Err carries the
// StageError and Artifact/ArtifactPath are empty. ImageErrors holds
// per-image rejections; they do not fail the run.
type Result struct {
	RecordID     string
	State        State
	Document     *record.StructuredDocument
	Artifact     *record.RenderedArtifact
	ArtifactPath string
	ImageErrors  []error
	Err          error
}

// Pipeline wires the assembly stages together under one configuration.
type Pipeline struct {
	cfg       *config.Config
	validator *validator.Validator
	formatter *format.Formatter
	sanitizer *images.Sanitizer
	renderer  *render.PDFRenderer
	recorder  *audit.Recorder
}

// New creates a Pipeline from configuration. A nil recorder disables the
// audit trail.
func New(cfg *config.Config, recorder *audit.Recorder) *Pipeline {
	if recorder == nil {
		recorder = audit.NewRecorder(nil)
	}
	return &Pipeline{
		cfg:       cfg,
		validator: validator.NewWithLimits(cfg.Limits.MaxSectionLength, cfg.Limits.MaxNameLength, cfg.Limits.MaxAliases, cfg.Limits.MaxSources),
		formatter: format.NewWithPolicy(format.CaveatPolicy{
			Handling:        cfg.Caveats.Handling,
			TLPRestrictions: cfg.Caveats.TLPRestrictions,
			Distribution:    cfg.Caveats.Distribution,
		}),
		sanitizer: images.NewSanitizer(cfg.Security.MaxImageBytes, cfg.Security.MetadataStripping),
		renderer:  render.NewPDFRenderer(""),
		recorder:  recorder,
	}
}

// Run processes one record end to end and writes the artifact to the
// configured output directory. Exactly one terminal audit event is emitted
// per invocation.
func (p *Pipeline) Run(rec *record.IntelligenceRecord) *Result {
	result := &Result{RecordID: rec.ID, State: StateDraft}
	finish := p.recorder.StartTiming(rec.ID, "pipeline")

	if err := p.run(rec, result); err != nil {
		result.State = StateFailed
		result.Err = err
		finish(audit.OutcomeFailure, err.Error(), p.terminalMetadata(result))
		return result
	}

	result.State = StateComplete
	finish(audit.OutcomeSuccess, "", p.terminalMetadata(result))
	return result
}

func (p *Pipeline) run(rec *record.IntelligenceRecord, result *Result) error {
	// Validation
	done := p.recorder.StartTiming(rec.ID, string(StageValidation))
	validated, err := p.validator.Validate(rec)
	if err != nil {
		done(audit.OutcomeFailure, err.Error(), nil)
		return &StageError{Stage: StageValidation, Message: "record rejected", Cause: err}
	}
	done(audit.OutcomeSuccess, "", nil)
	result.State = StateValidated

	// Redaction parsing is fail-closed: one malformed marker stops the run.
	done = p.recorder.StartTiming(rec.ID, string(StageRedaction))
	parsed, redactionErrs := redaction.ParseSections(validated.Sections)
	if len(redactionErrs) > 0 {
		err := joinErrors(redactionErrs)
		done(audit.OutcomeFailure, err.Error(), nil)
		return &StageError{Stage: StageRedaction, Message: "malformed redaction markup", Cause: err}
	}
	redactionCount := redaction.CountRedactions(parsed)
	if max := p.cfg.Limits.MaxRedactions; max > 0 && redactionCount > max {
		err := fmt.Errorf("record carries %d redaction spans, limit is %d", redactionCount, max)
		done(audit.OutcomeFailure, err.Error(), nil)
		return &StageError{Stage: StageRedaction, Message: "redaction limit exceeded", Cause: err}
	}
	perSection := make(map[string]int)
	for section, segments := range parsed {
		for _, seg := range segments {
			if seg.Redacted {
				perSection[section]++
			}
		}
	}
	done(audit.OutcomeSuccess, "", map[string]interface{}{
		"redaction_count":        redactionCount,
		"redactions_per_section": perSection,
	})

	// Image sanitization: rejected images are dropped, the run continues.
	done = p.recorder.StartTiming(rec.ID, string(StageImages))
	cleanImages, imageErrs := p.sanitizer.SanitizeAll(validated.Images)
	result.ImageErrors = imageErrs
	done(audit.OutcomeSuccess, "", map[string]interface{}{
		"accepted": len(cleanImages),
		"rejected": len(imageErrs),
	})

	// Enrichment
	done = p.recorder.StartTiming(rec.ID, string(StageEnrichment))
	enrichment := enrich.Enrich(validated)
	done(audit.OutcomeSuccess, "", map[string]interface{}{
		"threat_score": enrichment.ThreatScore,
		"risk_tier":    enrichment.RiskTier.String(),
	})
	result.State = StateEnriched

	// Formatting
	done = p.recorder.StartTiming(rec.ID, string(StageFormatting))
	doc := p.formatter.Format(validated, enrichment, parsed, len(cleanImages))
	done(audit.OutcomeSuccess, "", map[string]interface{}{"control_number": doc.ControlNumber})
	result.Document = doc
	result.State = StateFormatted

	// Rendering
	done = p.recorder.StartTiming(rec.ID, string(StageRendering))
	artifact, err := p.renderer.Render(doc, cleanImages)
	if err != nil {
		done(audit.OutcomeFailure, err.Error(), nil)
		return &StageError{Stage: StageRendering, Message: "PDF assembly failed", Cause: err}
	}
	done(audit.OutcomeSuccess, "", map[string]interface{}{"pages": artifact.Pages})
	result.State = StateRendered

	// Encryption
	if p.cfg.Security.EncryptionEnabled {
		done = p.recorder.StartTiming(rec.ID, string(StageEncryption))
		artifact, err = render.Encrypt(artifact, render.Protection{
			UserPassword:  p.cfg.Security.UserPassword,
			OwnerPassword: p.cfg.Security.OwnerPassword,
			AllowPrint:    p.cfg.Security.AllowPrint,
			AllowCopy:     p.cfg.Security.AllowCopy,
			AllowModify:   p.cfg.Security.AllowModify,
		})
		if err != nil {
			done(audit.OutcomeFailure, err.Error(), nil)
			return &StageError{Stage: StageEncryption, Message: "document protection failed", Cause: err}
		}
		done(audit.OutcomeSuccess, "", nil)
		result.State = StateEncrypted
	}
	result.Artifact = artifact

	// Output
	done = p.recorder.StartTiming(rec.ID, string(StageOutput))
	path, err := WriteArtifact(p.cfg.Output.Dir, doc, artifact)
	if err != nil {
		done(audit.OutcomeFailure, err.Error(), nil)
		return &StageError{Stage: StageOutput, Message: "writing artifact", Cause: err}
	}
	done(audit.OutcomeSuccess, "", map[string]interface{}{"path": path})
	result.ArtifactPath = path

	return nil
}

// BatchRun processes records independently: one record's failure never
// stops the others. Results are returned in input order.
func (p *Pipeline) BatchRun(recs []*record.IntelligenceRecord) []*Result {
	results := make([]*Result, 0, len(recs))
	for _, rec := range recs {
		results = append(results, p.Run(rec))
	}
	return results
}

// WriteArtifact writes the rendered bytes to outputDir atomically: the data
// goes to a temp file in the same directory, then renames into place. The
// filename carries the record ID and a content-hash prefix so reruns with
// changed content never silently overwrite.
func WriteArtifact(outputDir string, doc *record.StructuredDocument, artifact *record.RenderedArtifact) (string, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.pdf", sanitizeFilename(doc.RecordID), artifact.SHA256[:8])
	finalPath := filepath.Join(outputDir, name)

	tmp, err := os.CreateTemp(outputDir, ".dossier-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publishing artifact: %w", err)
	}
	return finalPath, nil
}

// sanitizeFilename reduces a record ID to a safe filename component.
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "record"
	}
	return b.String()
}

func (p *Pipeline) terminalMetadata(result *Result) map[string]interface{} {
	md := map[string]interface{}{
		"state": string(result.State),
	}
	if result.Document != nil {
		md["control_number"] = result.Document.ControlNumber
		md["redaction_count"] = result.Document.RedactionCount
		md["image_count"] = result.Document.ImageCount
	}
	if result.Artifact != nil {
		md["sha256"] = result.Artifact.SHA256
		md["pages"] = result.Artifact.Pages
		md["encrypted"] = result.Artifact.Encrypted
	}
	if len(result.ImageErrors) > 0 {
		rejected := make([]string, 0, len(result.ImageErrors))
		for _, e := range result.ImageErrors {
			rejected = append(rejected, e.Error())
		}
		md["image_rejections"] = rejected
	}
	return md
}

// joinErrors collapses a fail-closed error list into one error value.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return fmt.Errorf("%d errors: %s", len(errs), strings.Join(parts, "; "))
}
