package pgsource

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Protocol selects which of the three wire-level read strategies a
// Partition's Parser uses. It carries no runtime payload — it only
// determines how the query is wrapped and how rows are decoded.
type Protocol int

const (
	ProtocolBinary Protocol = iota
	ProtocolCSV
	ProtocolCursor
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBinary:
		return "binary"
	case ProtocolCSV:
		return "csv"
	case ProtocolCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// Partition is a unit of parallel work bound to one SQL query and one
// pooled connection, held for the Partition's entire lifetime. Driving it
// (ResultRows, then Parser, then draining the Parser) is meant to happen
// on its own goroutine; see internal/fanout for the pattern the CLI driver
// uses to run many Partitions concurrently.
type Partition struct {
	conn      *pgxpool.Conn
	query     Query
	protocol  Protocol
	schema    Schema
	pgSchema  []uint32
	ncols     int
	hstoreOID uint32
	bufSize   int
	nrows     int
	closed    bool
}

// ResultRows fills nrows via the same count-derivation procedure as
// Source.ResultRows, targeting this partition's own query over its own
// checked-out connection.
func (p *Partition) ResultRows(ctx context.Context) error {
	n, err := runCountQuery(ctx, p.conn, p.query)
	if err != nil {
		return err
	}
	p.nrows = n
	return nil
}

// NRows returns the row count filled by ResultRows (zero if never called).
func (p *Partition) NRows() int { return p.nrows }

// NCols returns the partition's column count.
func (p *Partition) NCols() int { return p.ncols }

// Close returns the partition's connection to the pool. Safe to call more
// than once.
func (p *Partition) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.conn.Release()
}

// Parser opens a streaming read tied to this partition's connection and
// returns a Parser bound to it. The parser's lifetime is bounded by the
// partition: dropping the partition (Close) while a Parser is live closes
// the underlying stream.
func (p *Partition) Parser(ctx context.Context) (Parser, error) {
	switch p.protocol {
	case ProtocolBinary:
		return newBinaryParser(ctx, p)
	case ProtocolCSV:
		return newCSVParser(ctx, p)
	case ProtocolCursor:
		return newCursorParser(ctx, p)
	default:
		return nil, otherErr("unknown protocol", nil)
	}
}
