package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seqtriage/domain/core"
	"seqtriage/domain/triage"
	"seqtriage/domain/verdict"
	"seqtriage/internal"
	"seqtriage/internal/gates"
	"seqtriage/ports"
)

// GateService runs the publication gates over a ranked table and persists
// the resulting validation report
type GateService struct {
	ledgerPort ports.LedgerPort
	rngPort    ports.RNGPort
	engine     *gates.Engine
	logger     *internal.Logger
}

// GateRequest defines the inputs for a gate run
type GateRequest struct {
	RunID core.RunID
	// Ranked rows to gate. Nil means load the stored ranked table for RunID.
	Ranked []triage.Ranked
	// Reports holds upstream evidence reports keyed by candidate ID. A
	// candidate without a report is judged on derived evidence alone.
	Reports map[core.CandidateID]map[string]interface{}
	// Seed drives the bootstrap fallback streams; record it with the run.
	Seed int64
}

// GateRunResult contains the gate run output with audit trail
type GateRunResult struct {
	RunID     core.RunID                `json:"run_id"`
	Report    *verdict.ValidationReport `json:"report"`
	Artifact  core.Artifact             `json:"artifact"`
	RuntimeMs int64                     `json:"runtime_ms"`
}

// NewGateService creates a gate service
func NewGateService(ledgerPort ports.LedgerPort, rngPort ports.RNGPort, engine *gates.Engine, logger *internal.Logger) *GateService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &GateService{
		ledgerPort: ledgerPort,
		rngPort:    rngPort,
		engine:     engine,
		logger:     logger.With("gate-run"),
	}
}

// RunGates evaluates every ranked row against the five gate categories.
// Evidence is assembled honestly: whatever the ranked row itself implies,
// overlaid with the candidate's upstream report when one was supplied. A
// report that cannot be parsed fails the run rather than silently gating on
// partial evidence.
func (s *GateService) RunGates(ctx context.Context, req GateRequest) (*GateRunResult, error) {
	startTime := time.Now()

	if req.RunID == "" {
		return nil, fmt.Errorf("gate run requires a run ID")
	}

	rows := req.Ranked
	if rows == nil {
		loaded, err := s.loadRankedTable(ctx, req.RunID)
		if err != nil {
			return nil, err
		}
		rows = loaded
	}

	items := make([]gates.BatchItem, 0, len(rows))
	for _, row := range rows {
		ev := gates.DeriveEvidence(row)
		if report, ok := req.Reports[row.ID]; ok {
			parsed, err := gates.ParseEvidenceReport(report)
			if err != nil {
				return nil, fmt.Errorf("evidence report for candidate %s: %w", row.ID, err)
			}
			ev = ev.Merge(parsed)
		}

		// Independent stream per candidate: re-gating the same run with the
		// same seed reproduces every bootstrap interval exactly
		stream, err := s.rngPort.Stream(ctx, req.RunID.String(), "gates", row.ID.String(), req.Seed)
		if err != nil {
			return nil, fmt.Errorf("rng stream for candidate %s: %w", row.ID, err)
		}

		items = append(items, gates.BatchItem{
			CandidateID: row.ID,
			Evidence:    ev,
			RNG:         stream,
		})
	}

	report, err := s.engine.EvaluateBatch(ctx, req.RunID, items)
	if err != nil {
		return nil, fmt.Errorf("gate evaluation failed: %w", err)
	}

	artifact := report.ToCoreArtifact()
	if err := s.ledgerPort.StoreArtifact(ctx, req.RunID.String(), artifact); err != nil {
		return nil, fmt.Errorf("failed to store validation report: %w", err)
	}

	runtimeMs := time.Since(startTime).Milliseconds()

	return &GateRunResult{
		RunID:     req.RunID,
		Report:    report,
		Artifact:  artifact,
		RuntimeMs: runtimeMs,
	}, nil
}

// loadRankedTable pulls the stored ranked table for the run. Payloads
// arrive as live typed slices from the in-memory ledger and as decoded JSON
// from postgres, so both shapes are accepted.
func (s *GateService) loadRankedTable(ctx context.Context, runID core.RunID) ([]triage.Ranked, error) {
	artifacts, err := s.ledgerPort.GetArtifactsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts for run %s: %w", runID, err)
	}
	for _, artifact := range artifacts {
		if artifact.Kind != core.ArtifactRankedTable {
			continue
		}
		return decodeRanked(artifact.Payload)
	}
	return nil, core.NewNotFoundError("ranked_table", runID.String())
}

// decodeRanked recovers typed rows from an artifact payload.
func decodeRanked(payload interface{}) ([]triage.Ranked, error) {
	if rows, ok := payload.([]triage.Ranked); ok {
		return rows, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ranked table payload not decodable: %w", err)
	}
	var rows []triage.Ranked
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("ranked table payload not decodable: %w", err)
	}
	return rows, nil
}
