// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"anubis-dossier/internal/record"
)

// CaveatPolicy is the precedence table combining classification and TLP
// into handling caveats. It is policy data, not logic: deployments may
// override the wording through configuration, but the combination rule is
// fixed: TLP restrictiveness only ever adds caveats, it never lowers the
// classification-derived banner.
type CaveatPolicy struct {
	// Handling maps a classification banner to its handling instruction.
	Handling map[string]string `yaml:"handling"`

	// TLPRestrictions maps a TLP color to the restriction it introduces.
	// Restrictions are cumulative: a document marked AMBER carries the
	// GREEN restriction as well, so the caveat set is monotonically
	// non-decreasing in TLP restrictiveness.
	TLPRestrictions map[string]string `yaml:"tlp_restrictions"`

	// Distribution maps a classification banner to its distribution
	// statement.
	Distribution map[string]string `yaml:"distribution"`
}

// DefaultCaveatPolicy returns the built-in IC-standard wording.
func DefaultCaveatPolicy() CaveatPolicy {
	return CaveatPolicy{
		Handling: map[string]string{
			record.Unclassified.String(): "Public Release Authorized",
			record.Confidential.String(): "For Official Use Only",
			record.Secret.String():       "NOFORN — Not Releasable to Foreign Nationals",
			record.TopSecret.String():    "NOFORN // ORCON — Originator Controlled",
		},
		TLPRestrictions: map[string]string{
			record.TLPGreen.String(): "TLP:GREEN — Community distribution only",
			record.TLPAmber.String(): "TLP:AMBER — Limited disclosure, recipients' organizations only",
			record.TLPRed.String():   "TLP:RED — No further distribution, named recipients only",
		},
		Distribution: map[string]string{
			record.Unclassified.String(): "DISTRIBUTION: Unrestricted.",
			record.Confidential.String(): "DISTRIBUTION: Authorized personnel with need-to-know. Reproduction permitted for official purposes.",
			record.Secret.String():       "DISTRIBUTION: Limited to cleared personnel. Reproduction for official use only. Destruction per security protocols.",
			record.TopSecret.String():    "DISTRIBUTION: Named recipients only. No further dissemination without originator approval. Reproduction prohibited.",
		},
	}
}

// Caveats returns the ordered caveat set for a marking pair: the
// classification handling instruction first, then every TLP restriction at
// or below the document's TLP level, most permissive first. WHITE adds
// nothing beyond the classification caveat.
func (p CaveatPolicy) Caveats(classification record.ClassificationMarking, tlp record.TLPMarking) []string {
	caveats := []string{p.Handling[classification.String()]}
	for _, level := range []record.TLPMarking{record.TLPGreen, record.TLPAmber, record.TLPRed} {
		if tlp >= level {
			caveats = append(caveats, p.TLPRestrictions[level.String()])
		}
	}
	return caveats
}

// DistributionStatement returns the distribution statement for a
// classification level.
func (p CaveatPolicy) DistributionStatement(classification record.ClassificationMarking) string {
	return p.Distribution[classification.String()]
}
