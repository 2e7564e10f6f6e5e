// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package record defines the data model shared by every pipeline stage:
// the raw intelligence record handed in by the caller, classification and
// TLP markings, the canonical dossier section set, and the structured
// document contract consumed by the rendering layer.
package record

import (
	"fmt"
	"strings"
)

// ClassificationMarking is an ordered classification level. Higher values
// are more restrictive and take banner precedence.
type ClassificationMarking int

const (
	Unclassified ClassificationMarking = iota
	Confidential
	Secret
	TopSecret
)

// String returns the banner form of the classification level.
func (c ClassificationMarking) String() string {
	switch c {
	case Unclassified:
		return "UNCLASSIFIED"
	case Confidential:
		return "CONFIDENTIAL"
	case Secret:
		return "SECRET"
	case TopSecret:
		return "TOP SECRET"
	default:
		return "UNKNOWN"
	}
}

// Code returns the single-letter portion marking for the level.
func (c ClassificationMarking) Code() string {
	switch c {
	case Unclassified:
		return "U"
	case Confidential:
		return "C"
	case Secret:
		return "S"
	case TopSecret:
		return "TS"
	default:
		return "?"
	}
}

// ParseClassification converts a raw marking string to a
// ClassificationMarking. Matching is case-insensitive and tolerant of
// surrounding whitespace.
func ParseClassification(s string) (ClassificationMarking, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNCLASSIFIED":
		return Unclassified, nil
	case "CONFIDENTIAL":
		return Confidential, nil
	case "SECRET":
		return Secret, nil
	case "TOP SECRET":
		return TopSecret, nil
	default:
		return Unclassified, fmt.Errorf("unknown classification marking: %q", s)
	}
}

// TLPMarking is a Traffic Light Protocol sharing restriction. The order is
// independent of classification: WHITE < GREEN < AMBER < RED.
type TLPMarking int

const (
	TLPWhite TLPMarking = iota
	TLPGreen
	TLPAmber
	TLPRed
)

// String returns the TLP color name.
func (t TLPMarking) String() string {
	switch t {
	case TLPWhite:
		return "WHITE"
	case TLPGreen:
		return "GREEN"
	case TLPAmber:
		return "AMBER"
	case TLPRed:
		return "RED"
	default:
		return "UNKNOWN"
	}
}

// ParseTLP converts a raw TLP string to a TLPMarking.
func ParseTLP(s string) (TLPMarking, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE":
		return TLPWhite, nil
	case "GREEN":
		return TLPGreen, nil
	case "AMBER":
		return TLPAmber, nil
	case "RED":
		return TLPRed, nil
	default:
		return TLPWhite, fmt.Errorf("unknown TLP marking: %q", s)
	}
}

// Canonical dossier section identifiers, in the fixed order every rendered
// document uses. Section presence never changes this order; unpopulated
// sections render a placeholder instead of being omitted.
const (
	SectionExecutiveSummary    = "Executive Summary"
	SectionTargetProfile       = "Target Profile"
	SectionBiometricData       = "Biometric Data"
	SectionDigitalFootprint    = "Digital Footprint"
	SectionKnownAssociates     = "Known Associates"
	SectionFinancialIntel      = "Financial Intelligence"
	SectionCommunicationsIntel = "Communications Intelligence"
	SectionTravelHistory       = "Travel History"
	SectionBehavioralAnalysis  = "Behavioral Analysis"
	SectionThreatAssessment    = "Threat Assessment"
	SectionOperationalHistory  = "Operational History"
	SectionKnownIncidents      = "Known Incidents"
	SectionIntelligenceGaps    = "Intelligence Gaps"
	SectionRecommendations     = "Recommendations"
)

// SectionOrder is the canonical ordering of all fourteen dossier sections.
var SectionOrder = []string{
	SectionExecutiveSummary,
	SectionTargetProfile,
	SectionBiometricData,
	SectionDigitalFootprint,
	SectionKnownAssociates,
	SectionFinancialIntel,
	SectionCommunicationsIntel,
	SectionTravelHistory,
	SectionBehavioralAnalysis,
	SectionThreatAssessment,
	SectionOperationalHistory,
	SectionKnownIncidents,
	SectionIntelligenceGaps,
	SectionRecommendations,
}

// IsCanonicalSection reports whether name is one of the fourteen fixed
// section identifiers.
func IsCanonicalSection(name string) bool {
	for _, s := range SectionOrder {
		if s == name {
			return true
		}
	}
	return false
}

// ThreatIndicators are the raw boolean/ordinal inputs to threat scoring.
// Ordinal values are one of "", "low", "medium", "high"; an empty value
// means the indicator was not collected and carries zero weight.
type ThreatIndicators struct {
	KnownIncident     bool   `yaml:"known_incident"`
	NetworkCentrality string `yaml:"network_centrality"`
	BehavioralRisk    string `yaml:"behavioral_risk"`
	PriorAssociation  bool   `yaml:"prior_association"`
	FinancialFlag     bool   `yaml:"financial_flag"`
}

// SourceEntry is a source-graded line item (Known Associates, Digital
// Footprint) carrying an Admiralty reliability code.
type SourceEntry struct {
	Platform      string `yaml:"platform"`
	Identifier    string `yaml:"identifier"`
	AdmiraltyCode string `yaml:"admiralty_code"`
}

// ImageAsset is a binary image payload with its declared MIME type. After
// sanitization the payload is guaranteed to carry zero metadata segments.
type ImageAsset struct {
	Name         string
	DeclaredMIME string
	Data         []byte
}

// IntelligenceRecord is the raw pipeline input as assembled by the caller.
// It is treated as immutable once handed to the pipeline; every stage
// produces a new value rather than mutating this one.
type IntelligenceRecord struct {
	ID             string            `yaml:"id"`
	TargetName     string            `yaml:"target_name"`
	Aliases        []string          `yaml:"aliases"`
	Classification string            `yaml:"classification"`
	TLP            string            `yaml:"tlp"`
	Sections       map[string]string `yaml:"sections"`
	Sources        []SourceEntry     `yaml:"sources"`
	Indicators     ThreatIndicators  `yaml:"indicators"`

	// RelatedRecordCount is a precomputed trailing-window count supplied by
	// the external store; the pipeline only buckets it.
	RelatedRecordCount int `yaml:"related_record_count"`

	// CrossReferenceCount is supplied by the external store.
	CrossReferenceCount int `yaml:"cross_reference_count"`

	Images []ImageAsset `yaml:"-"`
}

// ValidatedRecord is the Validator's output: markings resolved to their
// enumerations and free text sanitized. Downstream stages accept only this.
type ValidatedRecord struct {
	ID                  string
	TargetName          string
	Aliases             []string
	Classification      ClassificationMarking
	TLP                 TLPMarking
	Sections            map[string]string
	Sources             []SourceEntry
	Indicators          ThreatIndicators
	RelatedRecordCount  int
	CrossReferenceCount int
	Images              []ImageAsset
}

// RiskTier is a step-function band over the threat score.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierHigh
	TierCritical
)

// String returns the tier label used in rendered documents.
func (rt RiskTier) String() string {
	switch rt {
	case TierLow:
		return "LOW"
	case TierModerate:
		return "MODERATE"
	case TierHigh:
		return "HIGH"
	case TierCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// EnrichmentResult holds the derived fields computed once per pipeline run.
// It is read-only after creation.
type EnrichmentResult struct {
	ThreatScore         int
	RiskTier            RiskTier
	Priority            string
	ResponseWindow      string
	CollectionVelocity  string
	CrossReferenceCount int
}

// DocumentSection is one rendered section of a structured document.
type DocumentSection struct {
	Title string
	Body  string
	Empty bool
}

// StructuredDocument is the Formatter's output and the sole contract
// between the pipeline core and the rendering collaborator. It contains no
// timestamps so that identical inputs produce identical documents.
type StructuredDocument struct {
	RecordID         string
	ControlNumber    string
	Banner           string
	Caveats          []string
	CaveatLine       string
	Watermark        string
	Declassification string
	Distribution     string
	TargetName       string
	Aliases          []string
	Enrichment       EnrichmentResult
	Sections         []DocumentSection
	RedactionCount   int
	ImageCount       int
}

// RenderedArtifact is the final byte stream plus a content hash used for
// audit correlation. Immutable once produced.
type RenderedArtifact struct {
	Data      []byte
	SHA256    string
	Encrypted bool
	Pages     int
}
