package pgsource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/dataxfer/pgsource/internal/safety"
)

// querier is the subset of *pgxpool.Pool and *pgxpool.Conn that
// runCountQuery needs, letting the Source and each Partition share the
// count-derivation logic regardless of whether they hold the whole pool or
// a single checked-out connection.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// countQuery derives a `SELECT COUNT(*)` wrapper around sql. Rather than
// re-serializing a parsed AST (which could silently change the query's
// text), it parses sql only to confirm it is a single SELECT statement,
// then wraps the original text verbatim.
func countQuery(sql Query) (string, error) {
	result, err := pgquery.Parse(sql.String())
	if err != nil {
		return "", otherErr("count query was not an int", fmt.Errorf("parse query: %w", err))
	}
	if len(result.Stmts) != 1 {
		return "", otherErr("count query was not an int", fmt.Errorf("expected exactly one statement, got %d", len(result.Stmts)))
	}
	if result.Stmts[0].Stmt.GetSelectStmt() == nil {
		return "", otherErr("count query was not an int", fmt.Errorf("query is not a single SELECT"))
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS %s", sql, safety.QuoteIdent("_subquery")), nil
}

// runCountQuery executes the count-derivation query over conn/pool and
// interprets the single returned column as an integer: any other column
// type fails with "count query was not an int".
func runCountQuery(ctx context.Context, q querier, sql Query) (int, error) {
	wrapped, err := countQuery(sql)
	if err != nil {
		return 0, err
	}
	rows, err := q.Query(ctx, wrapped)
	if err != nil {
		return 0, postgresErr("count query", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, postgresErr("count query", err)
		}
		return 0, otherErr("count query returned no rows", nil)
	}
	fds := rows.FieldDescriptions()
	if len(fds) != 1 {
		return 0, otherErr("count query was not an int", fmt.Errorf("expected 1 column, got %d", len(fds)))
	}
	var n int
	switch fds[0].DataTypeOID {
	case oidInt2:
		var v int16
		if err := rows.Scan(&v); err != nil {
			return 0, postgresErr("count query scan", err)
		}
		n = int(v)
	case oidInt4:
		var v int32
		if err := rows.Scan(&v); err != nil {
			return 0, postgresErr("count query scan", err)
		}
		n = int(v)
	case oidInt8:
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, postgresErr("count query scan", err)
		}
		n = int(v)
	default:
		return 0, otherErr("count query was not an int", nil)
	}
	if err := rows.Err(); err != nil {
		return 0, postgresErr("count query", err)
	}
	return n, nil
}
