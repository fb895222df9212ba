package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"seqtriage/adapters/excel"
	"seqtriage/adapters/file"
	"seqtriage/adapters/graph"
	"seqtriage/adapters/postgres"
	"seqtriage/app"
	"seqtriage/domain/core"
	"seqtriage/domain/stats"
	"seqtriage/domain/triage"
	"seqtriage/domain/verdict"
	"seqtriage/internal"
	"seqtriage/internal/config"
	"seqtriage/internal/gates"
	"seqtriage/internal/testkit"
	"seqtriage/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded configuration from .env")
	}

	rootCmd := &cobra.Command{
		Use:   "seqtriage",
		Short: "Discovery record triage: dedupe, cluster, rank, and gate sequence candidates",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newGateCmd(),
		newStatsCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ============================================================================
// RUN COMMAND
// ============================================================================

type runOptions struct {
	input      string
	refs       string
	fromGraph  bool
	seed       int64
	threshold  float64
	topN       int
	workers    int
	persist    bool
	outputFile string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full triage pipeline on a discovery batch",
		Long: `Run deduplication, clustering, novelty recalibration, and priority
ranking on a batch of discovery records.

The batch comes from a JSON-lines file, an xlsx/csv export, or the
upstream graph store (--graph). References for novelty recalibration come
from --refs (FASTA, plain text, or JSON array).

Example: seqtriage run --input batch.jsonl --refs panel.fasta --seed 12345 --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			// Environment supplies defaults; explicit flags win.
			if !cmd.Flags().Changed("seed") {
				opts.seed = cfg.Triage.Seed
			}
			if !cmd.Flags().Changed("threshold") {
				opts.threshold = cfg.Triage.IdentityThreshold
			}
			if !cmd.Flags().Changed("top") {
				opts.topN = cfg.Triage.TopN
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = cfg.Triage.Workers
			}
			if opts.input == "" {
				opts.input = cfg.Paths.InputFile
			}
			if opts.refs == "" {
				opts.refs = cfg.Paths.ReferenceFile
			}
			return runTriage(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Batch file (.jsonl, .xlsx, or .csv)")
	cmd.Flags().StringVar(&opts.refs, "refs", "", "Reference panel file for novelty recalibration")
	cmd.Flags().BoolVar(&opts.fromGraph, "graph", false, "Pull the batch from the upstream graph store")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "Random seed for deterministic operations")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", triage.DefaultIdentityThreshold, "Clustering identity threshold")
	cmd.Flags().IntVar(&opts.topN, "top", app.DefaultTopExport, "Top-N export size")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Clustering workers (0 = workload-sized)")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Store artifacts in the postgres ledger")
	cmd.Flags().StringVar(&opts.outputFile, "output", "", "Save the full triage result to a JSON file")

	return cmd
}

func runTriage(ctx context.Context, cfg *config.Config, opts runOptions) error {
	source, references, closeSource, err := buildSources(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeSource()

	ledger, closeLedger, err := pickLedger(cfg, opts.persist)
	if err != nil {
		return err
	}
	defer closeLedger()

	svc := app.NewTriageService(ledger, internal.NewDefaultLogger())
	result, err := svc.RunTriage(ctx, app.TriageRequest{
		Source:            source,
		References:        references,
		IdentityThreshold: opts.threshold,
		Seed:              opts.seed,
		TopN:              opts.topN,
		Workers:           opts.workers,
		CodeVersion:       cfg.Triage.CodeVersion,
	})
	if err != nil {
		return fmt.Errorf("triage run failed: %w", err)
	}

	m := result.Manifest
	fmt.Printf("\n=== TRIAGE MANIFEST ===\n")
	fmt.Printf("Run ID: %s\n", m.RunID)
	fmt.Printf("Batch Hash: %s\n", m.BatchHash)
	fmt.Printf("Fingerprint: %s\n", m.Fingerprint.Fingerprint)
	fmt.Printf("Seed: %d | Threshold: %.2f | Code: %s\n", m.Seed, m.IdentityThreshold, m.CodeVersion)
	fmt.Printf("Records: %d in, %d skipped -> %d candidates -> %d clusters (refs: %d)\n",
		m.InputCount, m.SkippedCount, m.CandidateCount, m.ClusterCount, m.ReferenceCount)

	fmt.Printf("\n=== RANKED SHORTLIST ===\n")
	for i, row := range result.Ranked {
		if i >= opts.topN {
			fmt.Printf("... and %d more\n", len(result.Ranked)-opts.topN)
			break
		}
		fmt.Printf("%d. %s  priority=%.4f novelty=%.3f research=%.3f feas=%.3f\n",
			i+1, truncateSeq(row.Sequence, 32), row.Priority, row.Novelty, row.Research, row.Feasibility)
		if len(row.Warnings) > 0 {
			fmt.Printf("   warnings: %v\n", row.Warnings)
		}
	}

	if len(result.Skipped) > 0 {
		fmt.Printf("\n=== SKIPPED RECORDS ===\n")
		for _, skip := range result.Skipped {
			fmt.Printf("record %d (%s): %s\n", skip.Index, skip.Label, skip.Reason)
		}
	}

	if opts.outputFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(opts.outputFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.outputFile, err)
		}
		fmt.Printf("\nFull result saved to %s\n", opts.outputFile)
	}

	fmt.Printf("\nTriage completed in %dms. Replay with seed %d and the fingerprint above.\n",
		result.RuntimeMs, m.Seed)
	return nil
}

// buildSources picks the record and reference sources for a run. The
// returned closer shuts down whichever source was opened.
func buildSources(ctx context.Context, cfg *config.Config, opts runOptions) (ports.RecordSource, ports.ReferenceSource, func(), error) {
	if opts.fromGraph {
		if err := cfg.RequireGraph(); err != nil {
			return nil, nil, nil, err
		}
		src, err := graph.NewSource(ctx, graph.Config{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.User,
			Password: cfg.Graph.Password,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		closer := func() { _ = src.Close(context.Background()) }
		if opts.refs != "" {
			return src, file.NewReferenceFile(opts.refs), closer, nil
		}
		return src, src, closer, nil
	}

	if opts.input == "" {
		return nil, nil, nil, fmt.Errorf("no batch given: use --input or --graph")
	}

	var source ports.RecordSource
	switch strings.ToLower(filepath.Ext(opts.input)) {
	case ".xlsx", ".csv":
		source = excel.NewBatchReader(opts.input)
	default:
		source = file.NewSource(opts.input)
	}

	var references ports.ReferenceSource
	if opts.refs != "" {
		references = file.NewReferenceFile(opts.refs)
	}
	return source, references, func() { _ = source.Close(context.Background()) }, nil
}

// pickLedger returns the postgres ledger when persistence was asked for,
// an in-memory one otherwise.
func pickLedger(cfg *config.Config, persist bool) (ports.LedgerPort, func(), error) {
	if !persist {
		kit, err := testkit.NewTestKit()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize in-memory ledger: %w", err)
		}
		return kit.LedgerAdapter(), func() {}, nil
	}

	ledger, db, err := openPostgresLedger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return ledger, func() { _ = db.Close() }, nil
}

func openPostgresLedger(cfg *config.Config) (*postgres.LedgerAdapter, *sqlx.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return postgres.NewLedgerAdapter(db), db, nil
}

// ============================================================================
// GATE COMMAND
// ============================================================================

type gateOptions struct {
	rankedFile string
	reportFile string
	seed       int64
}

func newGateCmd() *cobra.Command {
	var opts gateOptions

	cmd := &cobra.Command{
		Use:   "gate [run-id]",
		Short: "Evaluate the validation gates for a triaged run",
		Long: `Evaluate the five validation gate categories for every ranked
candidate, producing a full per-check audit report.

Given a run ID, the ranked table is loaded from the postgres ledger.
Given --ranked, the table is read from a JSON file instead (either a bare
array or a saved 'run --output' result).

Candidate evidence reports come from --report: a JSON object keyed by
candidate ID. Candidates without a report are judged on derived evidence
alone.

Example: seqtriage gate 01890a5d-… --report evidence.json --seed 42`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cmd.Flags().Changed("seed") {
				opts.seed = cfg.Triage.Seed
			}
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runGates(cmd.Context(), cfg, runID, opts)
		},
	}

	cmd.Flags().StringVar(&opts.rankedFile, "ranked", "", "Ranked table JSON file (instead of a ledger run)")
	cmd.Flags().StringVar(&opts.reportFile, "report", "", "Evidence report JSON file, keyed by candidate ID")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "Random seed for bootstrap fallbacks")

	return cmd
}

func runGates(ctx context.Context, cfg *config.Config, runID string, opts gateOptions) error {
	if runID == "" && opts.rankedFile == "" {
		return fmt.Errorf("nothing to gate: give a run ID or --ranked")
	}

	kit, err := testkit.NewTestKit()
	if err != nil {
		return fmt.Errorf("failed to initialize test kit: %w", err)
	}

	var ledger ports.LedgerPort
	closeLedger := func() {}
	var ranked []triage.Ranked

	if opts.rankedFile != "" {
		ranked, err = loadRankedFile(opts.rankedFile)
		if err != nil {
			return err
		}
		if runID == "" {
			runID = core.NewID().String()
		}
		ledger = kit.LedgerAdapter()
	} else {
		pgLedger, db, err := openPostgresLedger(cfg)
		if err != nil {
			return err
		}
		closeLedger = func() { _ = db.Close() }
		ledger = pgLedger
	}
	defer closeLedger()

	reports, err := loadEvidenceReports(opts.reportFile)
	if err != nil {
		return err
	}

	logger := internal.NewDefaultLogger()
	engine := gates.NewEngine(cfg.Gates.MaxConcurrent, logger)
	svc := app.NewGateService(ledger, kit.RNGAdapter(), engine, logger)

	result, err := svc.RunGates(ctx, app.GateRequest{
		RunID:   core.RunID(runID),
		Ranked:  ranked,
		Reports: reports,
		Seed:    opts.seed,
	})
	if err != nil {
		return fmt.Errorf("gate run failed: %w", err)
	}

	report := result.Report
	fmt.Printf("\n=== VALIDATION REPORT ===\n")
	fmt.Printf("Run ID: %s\n", report.RunID)
	fmt.Printf("Candidates: %d | Passed: %d | Failed: %d\n",
		len(report.Verdicts), report.Passed, report.Failed)
	fmt.Printf("Checks: %d of %d passed\n", report.ChecksPassed, report.TotalChecks)

	fmt.Printf("\n=== BY GATE ===\n")
	for _, gate := range verdict.AllGateCategories() {
		tally := report.ByGate[gate]
		fmt.Printf("%-20s passed=%d failed=%d\n", gate, tally.Passed, tally.Failed)
	}

	failed := 0
	for _, v := range report.Verdicts {
		if v.Passed {
			continue
		}
		if failed == 0 {
			fmt.Printf("\n=== FAILED CANDIDATES ===\n")
		}
		failed++
		fmt.Printf("%s: failed %v\n", v.CandidateID, v.FailedGates())
	}

	fmt.Printf("\nGate evaluation completed in %dms. Report artifact: %s\n",
		result.RuntimeMs, result.Artifact.ID)
	return nil
}

// loadRankedFile accepts a bare ranked array or a saved triage result.
func loadRankedFile(path string) ([]triage.Ranked, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranked file: %w", err)
	}

	var rows []triage.Ranked
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}
	var saved struct {
		Ranked []triage.Ranked `json:"ranked"`
	}
	if err := json.Unmarshal(data, &saved); err != nil || len(saved.Ranked) == 0 {
		return nil, fmt.Errorf("ranked file is neither a ranked array nor a saved run result: %s", path)
	}
	return saved.Ranked, nil
}

func loadEvidenceReports(path string) (map[core.CandidateID]map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var byID map[string]map[string]interface{}
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("report file must be a JSON object keyed by candidate ID: %w", err)
	}
	reports := make(map[core.CandidateID]map[string]interface{}, len(byID))
	for id, report := range byID {
		reports[core.CandidateID(id)] = report
	}
	return reports, nil
}

// ============================================================================
// STATS COMMANDS
// ============================================================================

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run the statistical primitives directly",
	}
	cmd.AddCommand(
		newStatsCICmd(),
		newStatsEffectCmd(),
		newStatsPowerCmd(),
		newStatsCorrectCmd(),
	)
	return cmd
}

func newStatsCICmd() *cobra.Command {
	var method string
	var level float64
	var seed int64
	var resamples int

	cmd := &cobra.Command{
		Use:   "ci [data-file]",
		Short: "Confidence interval for a sample (bootstrap, normal, or t)",
		Long: `Compute a confidence interval for the mean of a sample read from a
JSON array file.

Example: seqtriage stats ci sample.json --method bootstrap --level 0.95 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadFloats(args[0])
			if err != nil {
				return err
			}

			var interval stats.Interval
			if method == stats.CIBootstrap && resamples != stats.DefaultBootstrapResamples {
				interval, err = stats.BootstrapInterval(data, level, resamples, rand.New(rand.NewSource(seed)))
			} else {
				interval, err = stats.ConfidenceInterval(data, method, level, rand.New(rand.NewSource(seed)))
			}
			if err != nil {
				return err
			}

			fmt.Printf("n=%d mean=%.6f\n", len(data), interval.Mean)
			fmt.Printf("%.0f%% CI (%s): [%.6f, %.6f] width=%.6f\n",
				interval.Level*100, interval.Method, interval.Lower, interval.Upper, interval.Width())
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", stats.CIBootstrap, "Interval method: bootstrap|normal|t")
	cmd.Flags().Float64Var(&level, "level", 0.95, "Confidence level")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for bootstrap resampling")
	cmd.Flags().IntVar(&resamples, "resamples", stats.DefaultBootstrapResamples, "Bootstrap resample count")

	return cmd
}

func newStatsEffectCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "effect [group-a-file] [group-b-file]",
		Short: "Standardized effect size between two samples",
		Long: `Compute a standardized effect size between two samples read from
JSON array files.

Example: seqtriage stats effect treated.json control.json --method cohen_d`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupA, err := loadFloats(args[0])
			if err != nil {
				return err
			}
			groupB, err := loadFloats(args[1])
			if err != nil {
				return err
			}

			effect, err := stats.ComputeEffectSize(groupA, groupB, method)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %.6f (%s)\n", effect.Method, effect.Value, effect.Interpretation)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", stats.EffectCohenD, "Effect method: cohen_d|glass_delta|hedges_g")
	return cmd
}

func newStatsPowerCmd() *cobra.Command {
	var effect float64
	var sampleSize int
	var alpha float64
	var alternative string
	var targetPower float64

	cmd := &cobra.Command{
		Use:   "power",
		Short: "Power of a two-sample test, or the sample size to reach a target power",
		Long: `Compute the power of a two-sample test at the given effect size and
per-group sample size. With --target-power, compute the minimum per-group
sample size instead.

Example: seqtriage stats power --effect 0.5 --n 64 --alpha 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetPower > 0 {
				n, err := stats.MinimumSampleSize(effect, targetPower, alpha)
				if err != nil {
					return err
				}
				fmt.Printf("minimum n per group for power %.2f at d=%.3f: %d\n", targetPower, effect, n)
				return nil
			}

			power, err := stats.Power(effect, sampleSize, alpha, alternative)
			if err != nil {
				return err
			}
			fmt.Printf("power at d=%.3f, n=%d, alpha=%.3f (%s): %.4f\n",
				effect, sampleSize, alpha, alternative, power)
			return nil
		},
	}

	cmd.Flags().Float64Var(&effect, "effect", 0.5, "Standardized effect size")
	cmd.Flags().IntVar(&sampleSize, "n", 30, "Per-group sample size")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")
	cmd.Flags().StringVar(&alternative, "alternative", stats.AltTwoSided, "Alternative: two-sided|greater|less")
	cmd.Flags().Float64Var(&targetPower, "target-power", 0, "Solve for sample size at this power instead")

	return cmd
}

func newStatsCorrectCmd() *cobra.Command {
	var method string
	var alpha float64

	cmd := &cobra.Command{
		Use:   "correct [p-values-file]",
		Short: "Multiple-testing correction over a set of p-values",
		Long: `Apply a multiple-testing correction to p-values read from a JSON
array file.

Example: seqtriage stats correct pvalues.json --method fdr_bh --alpha 0.05`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pValues, err := loadFloats(args[0])
			if err != nil {
				return err
			}

			correction, err := stats.CorrectMultipleTesting(pValues, method, alpha)
			if err != nil {
				return err
			}

			fmt.Printf("%s at alpha=%.3f: %d of %d significant (empirical FDR %.3f)\n",
				correction.Method, correction.Alpha, correction.NumSignificant, len(pValues), correction.EmpiricalFDR)
			for i, p := range pValues {
				marker := " "
				if correction.Rejected[i] {
					marker = "*"
				}
				fmt.Printf("%s p=%.6f -> %.6f\n", marker, p, correction.CorrectedP[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", stats.CorrectionBH, "Correction method: fdr_bh|bonferroni|holm")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")

	return cmd
}

// ============================================================================
// EXPORT COMMAND
// ============================================================================

func newExportCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export the top-N shortlist of a stored run",
		Long: `Load the top-N export artifact of a persisted run from the postgres
ledger and write it as JSON.

Example: seqtriage export 01890a5d-… --output top.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runExport(cmd.Context(), cfg, core.RunID(args[0]), outputFile)
		},
	}

	cmd.Flags().StringVar(&outputFile, "output", "", "Write the export to this file instead of stdout")
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, runID core.RunID, outputFile string) error {
	ledger, db, err := openPostgresLedger(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	artifacts, err := ledger.GetArtifactsByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run artifacts: %w", err)
	}
	for _, artifact := range artifacts {
		if artifact.Kind != core.ArtifactTopExport {
			continue
		}
		data, err := json.MarshalIndent(artifact.Payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if outputFile == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(outputFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputFile, err)
		}
		fmt.Printf("Top export of run %s saved to %s\n", runID, outputFile)
		return nil
	}
	return fmt.Errorf("run %s has no top export artifact", runID)
}

// ============================================================================
// HELPERS
// ============================================================================

// loadFloats reads a JSON array of numbers.
func loadFloats(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%s must be a JSON array of numbers: %w", path, err)
	}
	return values, nil
}

func truncateSeq(seq string, max int) string {
	if len(seq) <= max {
		return seq
	}
	return seq[:max] + "…"
}
