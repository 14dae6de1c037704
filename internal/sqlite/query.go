package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/perstore/internal/graph"
	"github.com/roach88/perstore/internal/ir"
	"github.com/roach88/perstore/internal/quad"
)

// Query evaluates a nested query tree inside a read transaction, so the
// result reflects a single snapshot.
func (b *Backend) Query(ctx context.Context, query ir.IRValue) ([]ir.IRObject, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("query: begin: %w", err)
	}
	defer tx.Rollback()

	results, err := graph.Match(ctx, source{tx}, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return results, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// source answers matcher lookups with parameterized SQL.
// Every statement orders by seq so results follow insertion order.
type source struct {
	q querier
}

func (s source) Candidates(ctx context.Context, constraints map[string]string) ([]string, error) {
	query, params := candidateSQL(constraints)
	return s.strings(ctx, query, params...)
}

func (s source) Objects(ctx context.Context, subject, predicate string) ([]string, error) {
	return s.strings(ctx, `
		SELECT object FROM quads
		WHERE subject = ? AND predicate = ?
		GROUP BY object
		ORDER BY MIN(seq) ASC
	`, subject, predicate)
}

func (s source) Referrers(ctx context.Context, predicate, object string) ([]string, error) {
	return s.strings(ctx, `
		SELECT subject FROM quads
		WHERE predicate = ? AND object = ?
		GROUP BY subject
		ORDER BY MIN(seq) ASC
	`, predicate, object)
}

func (s source) strings(ctx context.Context, query string, params ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// candidateSQL builds the root candidate query. CVT subjects are excluded and
// each constraint adds an EXISTS clause. Constraint keys are sorted so equal
// inputs yield identical SQL. All values are parameterized.
func candidateSQL(constraints map[string]string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT q.subject FROM quads q WHERE substr(q.subject, 1, ?) <> ?")
	params := []any{len(quad.CVTPrefix), quad.CVTPrefix}

	predicates := make([]string, 0, len(constraints))
	for p := range constraints {
		predicates = append(predicates, p)
	}
	sort.Strings(predicates)

	for _, p := range predicates {
		b.WriteString(" AND EXISTS (SELECT 1 FROM quads c WHERE c.subject = q.subject AND c.predicate = ? AND c.object = ?)")
		params = append(params, p, constraints[p])
	}

	b.WriteString(" GROUP BY q.subject ORDER BY MIN(q.seq) ASC")
	return b.String(), params
}
