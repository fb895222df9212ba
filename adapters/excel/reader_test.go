package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestBatchReader_CSV(t *testing.T) {
	content := `sequence,label,Novelty Score,research_score,feasibility
ACDEFGHIKLMNPQRSTVWY,run-a,0.8,0.5,0.7
MKTAYIAKQR,run-b,0.6,,
,run-c,0.9,0.9,0.9
`
	path := filepath.Join(t.TempDir(), "batch.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}

	reader := NewBatchReader(path)
	ctx := context.Background()
	records, err := reader.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if records[0].Sequence != "ACDEFGHIKLMNPQRSTVWY" || records[0].Label != "run-a" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].Metrics.Novelty != 0.8 || records[0].Metrics.Research != 0.5 || records[0].Metrics.Feasibility != 0.7 {
		t.Errorf("display-form headers not mapped: %+v", records[0].Metrics)
	}

	// Empty feasibility cell falls back to the record default.
	if records[1].Metrics.Feasibility != 0.6 {
		t.Errorf("expected default feasibility, got %v", records[1].Metrics.Feasibility)
	}

	// Sequence-less row survives as a placeholder with its label.
	if records[2].Sequence != "" || records[2].Label != "run-c" {
		t.Errorf("expected labeled placeholder, got %+v", records[2])
	}

	if err := reader.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := reader.Fetch(ctx); err == nil {
		t.Error("expected error fetching from a closed reader")
	}
}

func TestBatchReader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Sequence", "Label", "Novelty Score", "Research Score"},
		{"ACDEFGHIKLMNPQRSTVWY", "run-a", 0.8, 0.5},
		{"MKTAYIAKQR", "run-b", 0.25, 0.75},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("failed to set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}

	records, err := NewBatchReader(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Sequence != "ACDEFGHIKLMNPQRSTVWY" || records[0].Metrics.Novelty != 0.8 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Label != "run-b" || records[1].Metrics.Research != 0.75 {
		t.Errorf("numeric cells not parsed: %+v", records[1])
	}
}

func TestBatchReader_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("sequence,label\n"), 0o644); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	if _, err := NewBatchReader(path).Fetch(context.Background()); err == nil {
		t.Error("expected error for a header-only file")
	}
}

func TestBatchReader_MissingFile(t *testing.T) {
	reader := NewBatchReader(filepath.Join(t.TempDir(), "nope.xlsx"))
	if _, err := reader.Fetch(context.Background()); err == nil {
		t.Error("expected error for a missing file")
	}
}
