// Package graph pulls discovery records out of the upstream graph store
// where generation pipelines deposit candidates and reference sequences.
package graph

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"seqtriage/domain/record"
)

// DefaultRecordQuery returns candidate nodes in deposit order with the
// flat metric layout the record schema accepts.
const DefaultRecordQuery = `
	MATCH (c:Candidate)
	RETURN c.sequence AS sequence,
		c.label AS label,
		c.novelty_score AS novelty_score,
		c.research_score AS research_score,
		c.therapeutic_potential AS therapeutic_potential,
		c.physics_validation AS physics_validation,
		c.druggability AS druggability,
		c.confidence AS confidence,
		c.aggregation_propensity AS aggregation_propensity,
		c.feasibility AS feasibility
	ORDER BY c.created_at ASC, c.sequence ASC
`

// DefaultReferenceQuery returns the known-sequence reference panel.
const DefaultReferenceQuery = `
	MATCH (r:Reference)
	RETURN r.sequence AS sequence
	ORDER BY r.sequence ASC
`

// Config holds graph store connection settings and optional query
// overrides for stores with a different node schema.
type Config struct {
	URI            string `json:"uri"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecordQuery    string `json:"record_query,omitempty"`
	ReferenceQuery string `json:"reference_query,omitempty"`
}

// Source reads discovery records and references from a Neo4j-compatible
// graph store. It implements both the record and reference source ports.
type Source struct {
	driver         neo4j.DriverWithContext
	recordQuery    string
	referenceQuery string
}

// NewSource connects to the graph store and verifies connectivity before
// returning.
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach graph store at %s: %w", cfg.URI, err)
	}
	log.Printf("[GraphSource] connected to %s", cfg.URI)

	recordQuery := cfg.RecordQuery
	if recordQuery == "" {
		recordQuery = DefaultRecordQuery
	}
	referenceQuery := cfg.ReferenceQuery
	if referenceQuery == "" {
		referenceQuery = DefaultReferenceQuery
	}
	return &Source{
		driver:         driver,
		recordQuery:    recordQuery,
		referenceQuery: referenceQuery,
	}, nil
}

// Fetch runs the record query and maps every row into a record. Rows that
// fail record validation are kept as empty-sequence placeholders so the
// dedupe stage accounts for them.
func (s *Source) Fetch(ctx context.Context) ([]record.Raw, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, s.recordQuery, nil, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute record query: %w", err)
	}

	records := make([]record.Raw, 0, len(result.Records))
	for _, row := range result.Records {
		m := row.AsMap()
		rec, err := record.FromMap(m)
		if err != nil {
			records = append(records, record.Placeholder(m))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchReferences runs the reference query and collects the sequences.
func (s *Source) FetchReferences(ctx context.Context) ([]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, s.referenceQuery, nil, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute reference query: %w", err)
	}

	refs := make([]string, 0, len(result.Records))
	for _, row := range result.Records {
		v, ok := row.Get("sequence")
		if !ok {
			continue
		}
		if seq, ok := v.(string); ok && seq != "" {
			refs = append(refs, seq)
		}
	}
	return refs, nil
}

// Close releases the driver connection pool.
func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
