// Package file reads discovery batches and reference panels from local
// files: JSON-lines exports for records, FASTA / plain-text / JSON-array
// layouts for reference sequences.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"seqtriage/domain/record"
)

// Source reads one discovery record per line from a JSON-lines export.
// Malformed lines are kept as empty-sequence placeholders so the dedupe
// stage can report them as skips; Fetch only fails when the file itself
// cannot be read.
type Source struct {
	filePath string
	closed   bool
}

// NewSource creates a record source backed by a JSON-lines file.
func NewSource(filePath string) *Source {
	return &Source{filePath: filePath}
}

// Fetch reads every line of the file into a record, in file order.
func (s *Source) Fetch(ctx context.Context) ([]record.Raw, error) {
	if s.closed {
		return nil, fmt.Errorf("record source is closed: %s", s.filePath)
	}
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("record file not found: %s", s.filePath)
	}

	f, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Long sequence rows can exceed Scanner's default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []record.Raw
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row map[string]interface{}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			// Keep the row: dedupe accounts for it as a skip.
			records = append(records, record.Raw{})
			continue
		}
		rec, err := record.FromMap(row)
		if err != nil {
			records = append(records, record.Placeholder(row))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return records, nil
}

// Close marks the source as consumed. The file handle itself only lives
// for the duration of Fetch.
func (s *Source) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

// ReferenceFile reads a reference panel for novelty recalibration. Three
// layouts are accepted: a JSON array of strings, FASTA ('>' headers with
// wrapped sequence lines), and plain text with one sequence per line.
// Lines starting with '#' are comments.
type ReferenceFile struct {
	filePath string
}

// NewReferenceFile creates a reference source backed by a local file.
func NewReferenceFile(filePath string) *ReferenceFile {
	return &ReferenceFile{filePath: filePath}
}

// FetchReferences reads every reference sequence from the file.
func (r *ReferenceFile) FetchReferences(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var refs []string
		if err := json.Unmarshal([]byte(trimmed), &refs); err != nil {
			return nil, fmt.Errorf("failed to parse reference JSON array: %w", err)
		}
		return refs, nil
	}
	return parseSequenceLines(trimmed), nil
}

// parseSequenceLines handles FASTA and one-per-line layouts in a single
// pass: a '>' header opens an accumulating record, any other line outside
// a record is a complete sequence on its own.
func parseSequenceLines(text string) []string {
	var refs []string
	var current strings.Builder
	inRecord := false

	flush := func() {
		if inRecord && current.Len() > 0 {
			refs = append(refs, current.String())
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			inRecord = true
			continue
		}
		if inRecord {
			current.WriteString(line)
			continue
		}
		refs = append(refs, line)
	}
	flush()
	return refs
}
