// Package warehouse loads normalized row batches into PostgreSQL with
// natural-key upsert semantics, one transaction per batch.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Sentinel errors for load operations.
var (
	// ErrUnknownRelation indicates the target relation is not registered.
	ErrUnknownRelation = errors.New("warehouse: unknown relation")
	// ErrSchemaMismatch indicates a batch column does not exist in the
	// target relation, or a natural-key column is missing from the batch.
	ErrSchemaMismatch = errors.New("warehouse: schema mismatch")
)

// DB is the subset of pgxpool.Pool the loader needs. Satisfied by
// *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Loader writes row batches into warehouse relations. Writes are
// idempotent: a rerun of the same extraction updates rows in place instead
// of duplicating them.
type Loader struct {
	db  DB
	log zerolog.Logger
}

// NewLoader creates a loader backed by the given database handle.
func NewLoader(db DB, log zerolog.Logger) *Loader {
	return &Loader{db: db, log: log}
}

// Load upserts rows into the named relation inside a single transaction.
// Rows sharing a natural key within the batch are collapsed (last value
// wins) before the write. Returns the number of rows affected.
//
// Conflicting rows have every non-key column overwritten, except the
// created_at audit column. For insert-only relations, or when the batch's
// columns are exactly the natural key, conflicting rows are left untouched.
func (l *Loader) Load(ctx context.Context, relation string, rows []Row) (int64, error) {
	if len(rows) == 0 {
		l.log.Debug().Str("relation", relation).Msg("empty batch, nothing to load")
		return 0, nil
	}

	rel, ok := RelationByName(relation)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRelation, relation)
	}

	cols, err := batchColumns(rel, rows)
	if err != nil {
		return 0, err
	}

	rows = dedupeByKey(rel, rows)

	sql, args := buildUpsert(rel, cols, rows)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin load of %s: %w", relation, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("load %d rows into %s: %w", len(rows), relation, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit load of %s: %w", relation, err)
	}

	affected := tag.RowsAffected()
	l.log.Info().
		Str("relation", relation).
		Int("batch", len(rows)).
		Int64("affected", affected).
		Msg("batch loaded")
	return affected, nil
}

// batchColumns validates the batch against the relation and returns the
// batch's column set in relation column order.
func batchColumns(rel Relation, rows []Row) ([]string, error) {
	first := rows[0]
	for col := range first {
		if !rel.hasColumn(col) {
			return nil, fmt.Errorf("%w: column %q not in relation %s", ErrSchemaMismatch, col, rel.Name)
		}
	}
	for _, k := range rel.Key {
		if _, ok := first[k]; !ok {
			return nil, fmt.Errorf("%w: batch for %s missing key column %q", ErrSchemaMismatch, rel.Name, k)
		}
	}
	// Uniform schema across the batch.
	for i, row := range rows {
		if len(row) != len(first) {
			return nil, fmt.Errorf("%w: row %d of %s batch has %d columns, want %d",
				ErrSchemaMismatch, i, rel.Name, len(row), len(first))
		}
		for col := range row {
			if _, ok := first[col]; !ok {
				return nil, fmt.Errorf("%w: row %d of %s batch has unexpected column %q",
					ErrSchemaMismatch, i, rel.Name, col)
			}
		}
	}

	cols := make([]string, 0, len(first))
	for _, c := range rel.Columns {
		if _, ok := first[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols, nil
}

// dedupeByKey collapses rows that share a natural key. The last occurrence's
// values win; batch order follows first occurrence. Cross-page duplicates
// from fan-out extraction must be resolved here, not left for the database
// to reject.
func dedupeByKey(rel Relation, rows []Row) []Row {
	index := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		k := keyOf(rel, row)
		if i, seen := index[k]; seen {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func keyOf(rel Relation, row Row) string {
	var b strings.Builder
	for _, k := range rel.Key {
		fmt.Fprintf(&b, "%v\x1f", row[k])
	}
	return b.String()
}

// buildUpsert renders a multi-row INSERT ... ON CONFLICT statement with
// positional arguments in row-major order.
func buildUpsert(rel Relation, cols []string, rows []Row) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(rows)*len(cols))

	b.WriteString("INSERT INTO ")
	b.WriteString(rel.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")\nVALUES ")

	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, col := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+1)
			args = append(args, row[col])
		}
		b.WriteByte(')')
	}

	b.WriteString("\nON CONFLICT (")
	b.WriteString(strings.Join(rel.Key, ", "))
	b.WriteByte(')')

	updates := updateColumns(rel, cols)
	if len(updates) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String(), args
	}

	b.WriteString(" DO UPDATE SET ")
	for i, col := range updates {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}
	return b.String(), args
}

// updateColumns returns the columns overwritten on conflict: everything in
// the batch except natural-key columns and the audit column. Insert-only
// relations never update.
func updateColumns(rel Relation, cols []string) []string {
	if rel.InsertOnly {
		return nil
	}
	var out []string
	for _, col := range cols {
		if rel.isKey(col) || col == AuditColumn {
			continue
		}
		out = append(out, col)
	}
	return out
}
