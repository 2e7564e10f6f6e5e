// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package enrich computes derived intelligence fields from a validated
// record. Enrichment is a pure function: the same record always produces
// the same result, and well-formed input cannot fail.
package enrich

import (
	"strings"

	"anubis-dossier/internal/record"
)

// Static indicator weights. The threat score is the sum of the applicable
// weights, clamped to [0, 100].
const (
	WeightKnownIncident    = 40
	WeightPriorAssociation = 10
	WeightFinancialFlag    = 10

	WeightCentralityHigh   = 30
	WeightCentralityMedium = 15
	WeightCentralityLow    = 5

	WeightBehavioralHigh   = 25
	WeightBehavioralMedium = 15
	WeightBehavioralLow    = 5
)

// Risk tier band boundaries over the threat score.
const (
	tierModerateFloor = 25
	tierHighFloor     = 50
	tierCriticalFloor = 75
)

// descriptor pairs a risk tier with its operational handling terms.
type descriptor struct {
	priority string
	window   string
}

var tierDescriptors = map[record.RiskTier]descriptor{
	record.TierCritical: {priority: "P1", window: "< 24 hours"},
	record.TierHigh:     {priority: "P2", window: "< 72 hours"},
	record.TierModerate: {priority: "P3", window: "< 7 days"},
	record.TierLow:      {priority: "P4", window: "< 30 days"},
}

// Enrich computes the full enrichment result for a validated record. The
// collection-velocity count comes precomputed from the external store; this
// stage only buckets and labels it.
func Enrich(rec *record.ValidatedRecord) record.EnrichmentResult {
	score := ThreatScore(rec.Indicators)
	tier := TierFor(score)
	desc := tierDescriptors[tier]

	return record.EnrichmentResult{
		ThreatScore:         score,
		RiskTier:            tier,
		Priority:            desc.priority,
		ResponseWindow:      desc.window,
		CollectionVelocity:  VelocityBucket(rec.RelatedRecordCount),
		CrossReferenceCount: rec.CrossReferenceCount,
	}
}

// ThreatScore computes the weighted indicator sum, clamped to [0, 100].
// Missing ordinal indicators weigh zero.
func ThreatScore(ind record.ThreatIndicators) int {
	score := 0
	if ind.KnownIncident {
		score += WeightKnownIncident
	}
	if ind.PriorAssociation {
		score += WeightPriorAssociation
	}
	if ind.FinancialFlag {
		score += WeightFinancialFlag
	}
	score += ordinalWeight(ind.NetworkCentrality, WeightCentralityLow, WeightCentralityMedium, WeightCentralityHigh)
	score += ordinalWeight(ind.BehavioralRisk, WeightBehavioralLow, WeightBehavioralMedium, WeightBehavioralHigh)

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// TierFor maps a threat score to its risk tier band.
func TierFor(score int) record.RiskTier {
	switch {
	case score >= tierCriticalFloor:
		return record.TierCritical
	case score >= tierHighFloor:
		return record.TierHigh
	case score >= tierModerateFloor:
		return record.TierModerate
	default:
		return record.TierLow
	}
}

// VelocityBucket labels the trailing-window related-record count.
func VelocityBucket(count int) string {
	switch {
	case count <= 0:
		return "DORMANT"
	case count <= 5:
		return "LOW"
	case count <= 20:
		return "MODERATE"
	case count <= 50:
		return "ELEVATED"
	default:
		return "INTENSIVE"
	}
}

// ordinalWeight resolves a three-level ordinal to its weight. Unset or
// unrecognized values are neutral.
func ordinalWeight(value string, low, medium, high int) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return low
	case "medium":
		return medium
	case "high":
		return high
	default:
		return 0
	}
}
