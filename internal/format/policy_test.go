// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anubis-dossier/internal/record"
)

func TestDefaultCaveatPolicy_CoversAllMarkings(t *testing.T) {
	p := DefaultCaveatPolicy()

	for _, c := range []record.ClassificationMarking{
		record.Unclassified, record.Confidential, record.Secret, record.TopSecret,
	} {
		assert.NotEmpty(t, p.Handling[c.String()], "handling for %s", c)
		assert.NotEmpty(t, p.Distribution[c.String()], "distribution for %s", c)
	}
	for _, tlp := range []record.TLPMarking{record.TLPGreen, record.TLPAmber, record.TLPRed} {
		assert.NotEmpty(t, p.TLPRestrictions[tlp.String()], "restriction for %s", tlp)
	}
}

func TestCaveats_WhiteAddsNothing(t *testing.T) {
	p := DefaultCaveatPolicy()

	caveats := p.Caveats(record.Secret, record.TLPWhite)
	require.Len(t, caveats, 1)
	assert.Equal(t, p.Handling[record.Secret.String()], caveats[0])
}

func TestCaveats_Cumulative(t *testing.T) {
	p := DefaultCaveatPolicy()

	caveats := p.Caveats(record.TopSecret, record.TLPRed)
	require.Len(t, caveats, 4)
	assert.Equal(t, p.Handling[record.TopSecret.String()], caveats[0])
	assert.Contains(t, caveats, p.TLPRestrictions[record.TLPGreen.String()])
	assert.Contains(t, caveats, p.TLPRestrictions[record.TLPAmber.String()])
	assert.Contains(t, caveats, p.TLPRestrictions[record.TLPRed.String()])
}

func TestDistributionStatement(t *testing.T) {
	p := DefaultCaveatPolicy()

	assert.Equal(t, "DISTRIBUTION: Unrestricted.", p.DistributionStatement(record.Unclassified))
	assert.Contains(t, p.DistributionStatement(record.TopSecret), "Named recipients only")
}
