package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqtriage/domain/core"
	"seqtriage/domain/record"
	"seqtriage/domain/triage"
	"seqtriage/internal/testkit"
)

const (
	diverseTwenty = "ACDEFGHIKLMNPQRSTVWY"
	diverseForty  = "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRV"
)

func triageFixtureRecords() []record.Raw {
	return []record.Raw{
		{
			Sequence: diverseTwenty,
			Label:    "run-alpha",
			Metrics:  record.Metrics{Novelty: 0.3, Research: 0.5, Confidence: 0.5, Feasibility: 0.6},
		},
		{
			// Same sequence under sloppy encoding: merges with the row above
			Sequence: "acdefghiklmnpqrstvwy",
			Label:    "run-beta",
			Metrics:  record.Metrics{Novelty: 0.2, Research: 0.9, Confidence: 0.9, Feasibility: 0.6},
		},
		{
			Sequence: "   ",
			Label:    "run-broken",
		},
		{
			Sequence: diverseForty,
			Label:    "run-gamma",
			Metrics:  record.Metrics{Novelty: 0.7, Research: 0.2, Confidence: 0.8, Feasibility: 0.5},
		},
	}
}

func TestTriageService_RunTriage(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit()
	require.NoError(t, err)

	svc := NewTriageService(kit.LedgerAdapter(), nil)
	result, err := svc.RunTriage(ctx, TriageRequest{
		Source:      testkit.NewStaticRecordSource(triageFixtureRecords()),
		Seed:        42,
		CodeVersion: "test",
	})
	require.NoError(t, err)

	manifest := result.Manifest
	require.NotNil(t, manifest)
	assert.Equal(t, 4, manifest.InputCount)
	assert.Equal(t, 1, manifest.SkippedCount)
	assert.Equal(t, 2, manifest.CandidateCount)
	assert.Equal(t, 2, manifest.ClusterCount)
	assert.Equal(t, 0, manifest.ReferenceCount)
	assert.Equal(t, int64(42), manifest.Seed)
	assert.NoError(t, manifest.Validate())

	require.Len(t, result.Ranked, 2)
	first := result.Ranked[0]

	// The merged 20-mer outranks the 40-mer: its short-length novelty
	// penalty (0.8) is outweighed by the 0.9 research score it took from
	// its best duplicate.
	assert.Equal(t, diverseTwenty, first.Sequence)
	assert.Equal(t, 0.9, first.Research)
	assert.InDelta(t, 0.8, first.Novelty, 1e-9)
	assert.InDelta(t, 0.8522, first.Priority, 1e-3)
	assert.Equal(t, []string{"run-alpha", "run-beta"}, first.Labels)
	assert.Contains(t, first.Warnings, triage.WarningMergedDuplicates)
	assert.Contains(t, first.Warnings, triage.WarningShortSequence)

	second := result.Ranked[1]
	assert.Equal(t, diverseForty, second.Sequence)
	assert.InDelta(t, 1.0, second.Novelty, 1e-9)
	assert.NotContains(t, second.Warnings, triage.WarningShortSequence)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].Index)
	assert.Equal(t, "run-broken", result.Skipped[0].Label)

	require.Len(t, result.Top, 2)
	assert.Equal(t, first.ID, result.Top[0].ID)
}

func TestTriageService_PersistsManifestFirst(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit()
	require.NoError(t, err)
	ledger := kit.LedgerAdapter()

	svc := NewTriageService(ledger, nil)
	result, err := svc.RunTriage(ctx, TriageRequest{
		Source: testkit.NewStaticRecordSource(triageFixtureRecords()),
		Seed:   42,
	})
	require.NoError(t, err)

	artifacts, err := ledger.GetArtifactsByRun(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, artifacts, 5)
	assert.Equal(t, core.ArtifactTriageManifest, artifacts[0].Kind)

	kinds := make(map[core.ArtifactKind]int)
	for _, a := range artifacts {
		kinds[a.Kind]++
	}
	for _, kind := range []core.ArtifactKind{
		core.ArtifactTriageManifest,
		core.ArtifactSkippedRecords,
		core.ArtifactRankedTable,
		core.ArtifactClusterMap,
		core.ArtifactTopExport,
	} {
		assert.Equal(t, 1, kinds[kind], "expected exactly one %s artifact", kind)
	}

	stored, err := ledger.GetTriageManifest(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Manifest.BatchHash, stored.BatchHash)
	assert.Equal(t, result.Manifest.Fingerprint, stored.Fingerprint)
}

func TestTriageService_ReferencesShiftNovelty(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit()
	require.NoError(t, err)

	svc := NewTriageService(kit.LedgerAdapter(), nil)
	result, err := svc.RunTriage(ctx, TriageRequest{
		Source:     testkit.NewStaticRecordSource(triageFixtureRecords()),
		References: testkit.NewStaticReferenceSource([]string{diverseForty}),
		Seed:       42,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Manifest.ReferenceCount)

	var fortyRow *triage.Ranked
	for i := range result.Ranked {
		if result.Ranked[i].Sequence == diverseForty {
			fortyRow = &result.Ranked[i]
		}
	}
	require.NotNil(t, fortyRow)

	// Exact reference hit: novelty collapses to zero and the row is flagged
	assert.InDelta(t, 0.0, fortyRow.Novelty, 1e-9)
	assert.Contains(t, fortyRow.Warnings, triage.WarningNearReference)
}

func TestTriageService_DeterministicAcrossRuns(t *testing.T) {
	ctx := context.Background()

	runOnce := func() *TriageResult {
		kit, err := testkit.NewTestKit()
		require.NoError(t, err)
		svc := NewTriageService(kit.LedgerAdapter(), nil)
		result, err := svc.RunTriage(ctx, TriageRequest{
			Source:      testkit.NewStaticRecordSource(triageFixtureRecords()),
			Seed:        42,
			CodeVersion: "test",
		})
		require.NoError(t, err)
		return result
	}

	first := runOnce()
	second := runOnce()

	// Candidate IDs are minted per run; everything derived from the inputs
	// must agree exactly.
	assert.Equal(t, first.Manifest.BatchHash, second.Manifest.BatchHash)
	assert.Equal(t, first.Manifest.Fingerprint.Fingerprint, second.Manifest.Fingerprint.Fingerprint)
	require.Equal(t, len(first.Ranked), len(second.Ranked))
	for i := range first.Ranked {
		assert.Equal(t, first.Ranked[i].Sequence, second.Ranked[i].Sequence)
		assert.Equal(t, first.Ranked[i].Priority, second.Ranked[i].Priority)
		assert.Equal(t, first.Ranked[i].Novelty, second.Ranked[i].Novelty)
	}
}

func TestTriageService_SyntheticBatchPipeline(t *testing.T) {
	ctx := context.Background()
	kit, err := testkit.NewTestKit()
	require.NoError(t, err)

	generator := testkit.NewBatchGenerator(testkit.DefaultBatchConfig())
	records := generator.GenerateRecords()
	references := generator.GenerateReferences(8)

	svc := NewTriageService(kit.LedgerAdapter(), nil)
	result, err := svc.RunTriage(ctx, TriageRequest{
		Source:     testkit.NewStaticRecordSource(records),
		References: testkit.NewStaticReferenceSource(references),
		Seed:       42,
		TopN:       5,
	})
	require.NoError(t, err)

	manifest := result.Manifest
	assert.Equal(t, len(records), manifest.InputCount)
	// Every candidate lands in exactly one cluster; dedupe only collapses
	assert.Equal(t, manifest.CandidateCount, sumClusterSizes(result.Ranked))
	assert.GreaterOrEqual(t, manifest.InputCount-manifest.SkippedCount, manifest.CandidateCount)
	assert.LessOrEqual(t, manifest.ClusterCount, manifest.CandidateCount)
	assert.LessOrEqual(t, len(result.Top), 5)

	// Ranking is ordered best-first
	for i := 1; i < len(result.Ranked); i++ {
		assert.GreaterOrEqual(t, result.Ranked[i-1].Priority, result.Ranked[i].Priority)
	}
}

// sumClusterSizes totals the candidates represented by each ranked row.
func sumClusterSizes(rows []triage.Ranked) int {
	total := 0
	for _, row := range rows {
		total += row.ClusterSize
	}
	return total
}
