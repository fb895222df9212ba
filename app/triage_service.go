// Package app wires the triage domain into runnable services: the triage
// pipeline (fetch, dedupe, cluster, rank, persist) and the gate run that
// judges a ranked table against the publication gates. Services own artifact
// persistence; domain packages never touch the ledger.
package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"seqtriage/domain/core"
	"seqtriage/domain/run"
	"seqtriage/domain/triage"
	"seqtriage/internal"
	"seqtriage/ports"
)

// DefaultTopExport bounds the synthesis-queue export when the request does
// not say otherwise.
const DefaultTopExport = 20

// TriageService orchestrates a complete triage run with a full audit trail
type TriageService struct {
	ledgerPort ports.LedgerPort
	logger     *internal.Logger
}

// TriageRequest defines the inputs for a deterministic triage run
type TriageRequest struct {
	Source            ports.RecordSource
	References        ports.ReferenceSource // optional; nil means no reference corpus
	IdentityThreshold float64               // values <= 0 select the default
	Seed              int64
	TopN              int // values <= 0 select DefaultTopExport
	Workers           int // cluster comparison pool size; <= 0 auto-sizes
	CodeVersion       string
	RunID             core.RunID // optional, will be generated if empty
}

// TriageResult contains the complete output of a triage run
type TriageResult struct {
	RunID     core.RunID             `json:"run_id"`
	Manifest  *run.TriageManifest    `json:"manifest"`
	Ranked    []triage.Ranked        `json:"ranked"`
	Clusters  []triage.ClusterAudit  `json:"clusters"`
	Top       []triage.TopEntry      `json:"top"`
	Skipped   []triage.SkippedRecord `json:"skipped,omitempty"`
	RuntimeMs int64                  `json:"runtime_ms"`
}

// NewTriageService creates a triage service
func NewTriageService(ledgerPort ports.LedgerPort, logger *internal.Logger) *TriageService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &TriageService{
		ledgerPort: ledgerPort,
		logger:     logger.With("triage"),
	}
}

// RunTriage executes the full pipeline. The run manifest is validated and
// persisted before any other artifact of the run, so every stored output is
// traceable to its complete parameter set.
func (s *TriageService) RunTriage(ctx context.Context, req TriageRequest) (*TriageResult, error) {
	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.RunID(core.NewID())
	}
	threshold := req.IdentityThreshold
	if threshold <= 0 {
		threshold = triage.DefaultIdentityThreshold
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopExport
	}
	codeVersion := req.CodeVersion
	if codeVersion == "" {
		codeVersion = "dev"
	}

	records, err := req.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("record fetch failed: %w", err)
	}

	var references []string
	if req.References != nil {
		references, err = req.References.FetchReferences(ctx)
		if err != nil {
			return nil, fmt.Errorf("reference fetch failed: %w", err)
		}
	}

	candidates, skipped := triage.Deduplicate(records)
	for _, skip := range skipped {
		s.logger.Warn("skipped record %d (%s): %s", skip.Index, skip.Label, skip.Reason)
	}

	clusters := triage.ClusterCandidates(candidates, threshold, req.Workers)
	ranked, audits := triage.BuildRanking(candidates, clusters, references)
	top := triage.TopN(ranked, topN)

	manifest := run.NewTriageManifest(
		runID,
		batchHashOf(candidates),
		referenceHashOf(references),
		threshold,
		req.Seed,
		codeVersion,
		run.TriageCounts{
			Input:      len(records),
			Skipped:    len(skipped),
			Candidates: len(candidates),
			Clusters:   len(clusters),
			References: len(references),
		},
	)
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("triage manifest validation failed: %w", err)
	}

	// Manifest first: no other artifact of this run may exist without it
	if err := s.ledgerPort.StoreArtifact(ctx, runID.String(), manifest.ToCoreArtifact()); err != nil {
		return nil, fmt.Errorf("failed to store triage manifest: %w", err)
	}
	if len(skipped) > 0 {
		if err := s.storeArtifact(ctx, runID, core.ArtifactSkippedRecords, skipped); err != nil {
			return nil, err
		}
	}
	if err := s.storeArtifact(ctx, runID, core.ArtifactRankedTable, ranked); err != nil {
		return nil, err
	}
	if err := s.storeArtifact(ctx, runID, core.ArtifactClusterMap, audits); err != nil {
		return nil, err
	}
	if err := s.storeArtifact(ctx, runID, core.ArtifactTopExport, top); err != nil {
		return nil, err
	}

	runtimeMs := time.Since(startTime).Milliseconds()
	s.logger.Info("triage run %s: %d records -> %d candidates -> %d clusters in %dms (%d skipped)",
		runID, len(records), len(candidates), len(clusters), runtimeMs, len(skipped))

	return &TriageResult{
		RunID:     runID,
		Manifest:  manifest,
		Ranked:    ranked,
		Clusters:  audits,
		Top:       top,
		Skipped:   skipped,
		RuntimeMs: runtimeMs,
	}, nil
}

// storeArtifact persists one typed payload under the run.
func (s *TriageService) storeArtifact(ctx context.Context, runID core.RunID, kind core.ArtifactKind, payload interface{}) error {
	artifact := core.Artifact{
		ID:        core.NewID(),
		Kind:      kind,
		Payload:   payload,
		CreatedAt: core.Now(),
	}
	if err := s.ledgerPort.StoreArtifact(ctx, runID.String(), artifact); err != nil {
		return fmt.Errorf("failed to store %s artifact: %w", kind, err)
	}
	return nil
}

// batchHashOf derives the batch identity from the deduplicated candidate
// fingerprints.
func batchHashOf(candidates []triage.Candidate) core.BatchHash {
	fingerprints := make([]string, 0, len(candidates))
	for _, c := range candidates {
		fingerprints = append(fingerprints, c.Fingerprint.String())
	}
	return core.ComputeBatchHash(fingerprints)
}

// referenceHashOf identifies the reference corpus independent of panel
// order. An empty corpus hashes to the empty value so manifests for
// reference-free runs stay comparable.
func referenceHashOf(references []string) core.Hash {
	if len(references) == 0 {
		return core.Hash("")
	}
	sorted := make([]string, len(references))
	copy(sorted, references)
	sort.Strings(sorted)
	return core.NewHash([]byte(strings.Join(sorted, "\n")))
}
