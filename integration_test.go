// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Integration tests for the full Source -> Partition -> Parser pipeline
// against a live PostgreSQL server. Run with PGSOURCE_TEST_DSN set and
// `-tags integration`; skipped otherwise.

//go:build integration

package pgsource

import (
	"context"
	"os"
	"testing"
)

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PGSOURCE_TEST_DSN")
	if dsn == "" {
		t.Skip("PGSOURCE_TEST_DSN not set; skipping integration test")
	}
	return dsn
}

// openPartition runs query through protocol end to end, returning its
// Source (for schema inspection) alongside the ready-to-drain Partition.
func openPartition(t *testing.T, ctx context.Context, dsn, query string, protocol Protocol) (*Source, *Partition) {
	t.Helper()
	src, err := NewSource(ctx, Config{DSN: dsn, NConn: 1})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	src.SetQueries([]Query{Raw(query)})
	if err := src.FetchMetadata(ctx); err != nil {
		src.Close()
		t.Fatalf("FetchMetadata: %v", err)
	}
	parts, err := src.Partition(ctx, protocol)
	if err != nil {
		src.Close()
		t.Fatalf("Partition: %v", err)
	}
	return src, parts[0]
}

func TestIntegrationFetchMetadataColumnCount(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	src, part := openPartition(t, ctx, dsn, "SELECT 1::int4 AS id, 'a'::text AS name, now()::timestamptz AS ts", ProtocolBinary)
	defer src.Close()
	defer part.Close()

	if len(src.Names()) != 3 || len(src.Schema()) != 3 {
		t.Fatalf("expected 3 columns, got names=%v schema=%v", src.Names(), src.Schema())
	}
	if src.Names()[0] != "id" || src.Names()[1] != "name" || src.Names()[2] != "ts" {
		t.Fatalf("unexpected names: %v", src.Names())
	}
}

// S1/S2: the same schema/rows read identically via CSV and Binary.
func TestIntegrationScalarRoundTripAcrossProtocols(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	const query = `SELECT * FROM (VALUES
		(1::int4, 'a'::text, '1970-01-01 00:00:01+00'::timestamptz),
		(2::int4, NULL::text, '2020-02-29 12:00:00+00'::timestamptz)
	) AS t(id, name, ts)`

	for _, protocol := range []Protocol{ProtocolBinary, ProtocolCSV, ProtocolCursor} {
		src, part := openPartition(t, ctx, dsn, query, protocol)
		parser, err := part.Parser(ctx)
		if err != nil {
			t.Fatalf("protocol %v: Parser: %v", protocol, err)
		}

		n, isLast, err := parser.FetchNext()
		if err != nil {
			t.Fatalf("protocol %v: FetchNext: %v", protocol, err)
		}
		if n != 2 || !isLast {
			t.Fatalf("protocol %v: got (%d, %v), want (2, true)", protocol, n, isLast)
		}

		id, err := parser.ProduceInt4()
		if err != nil || id != 1 {
			t.Fatalf("protocol %v: row0.id = (%d, %v), want (1, nil)", protocol, id, err)
		}
		parser.Next()
		name, err := parser.ProduceTextNullable()
		if err != nil || name == nil || *name != "a" {
			t.Fatalf("protocol %v: row0.name = (%v, %v), want (a, nil)", protocol, name, err)
		}
		parser.Next()
		if _, err := parser.ProduceTimestampTz(); err != nil {
			t.Fatalf("protocol %v: row0.ts: %v", protocol, err)
		}
		parser.Next()

		id2, err := parser.ProduceInt4()
		if err != nil || id2 != 2 {
			t.Fatalf("protocol %v: row1.id = (%d, %v), want (2, nil)", protocol, id2, err)
		}
		parser.Next()
		name2, err := parser.ProduceTextNullable()
		if err != nil || name2 != nil {
			t.Fatalf("protocol %v: row1.name = (%v, %v), want (nil, nil)", protocol, name2, err)
		}
		parser.Next()
		if _, err := parser.ProduceTimestampTz(); err != nil {
			t.Fatalf("protocol %v: row1.ts: %v", protocol, err)
		}

		part.Close()
		src.Close()
	}
}

// S3: int4[] round trips via CSV and Binary.
func TestIntegrationIntArrayRoundTrip(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	for _, protocol := range []Protocol{ProtocolBinary, ProtocolCSV} {
		src, part := openPartition(t, ctx, dsn, "SELECT ARRAY[1,2,3]::int4[] AS a", protocol)
		parser, err := part.Parser(ctx)
		if err != nil {
			t.Fatalf("protocol %v: Parser: %v", protocol, err)
		}
		if _, _, err := parser.FetchNext(); err != nil {
			t.Fatalf("protocol %v: FetchNext: %v", protocol, err)
		}
		got, err := parser.ProduceInt4Array()
		if err != nil {
			t.Fatalf("protocol %v: ProduceInt4Array: %v", protocol, err)
		}
		want := []int32{1, 2, 3}
		if len(got) != len(want) {
			t.Fatalf("protocol %v: got %v, want %v", protocol, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("protocol %v: got %v, want %v", protocol, got, want)
			}
		}
		part.Close()
		src.Close()
	}
}

// S4: bytea round trips via CSV.
func TestIntegrationByteARoundTripCSV(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	src, part := openPartition(t, ctx, dsn, "SELECT decode('deadbeef', 'hex') AS b", ProtocolCSV)
	defer src.Close()
	defer part.Close()

	parser, err := part.Parser(ctx)
	if err != nil {
		t.Fatalf("Parser: %v", err)
	}
	if _, _, err := parser.FetchNext(); err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	got, err := parser.ProduceByteA()
	if err != nil {
		t.Fatalf("ProduceByteA: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}

// S5: hstore only decodes on the cursor protocol.
func TestIntegrationHstoreOnlyOnCursor(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	setup, err := NewSource(ctx, Config{DSN: dsn, NConn: 1})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	conn, err := setup.pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS hstore"); err != nil {
		conn.Release()
		t.Fatalf("create extension hstore: %v", err)
	}
	conn.Release()
	setup.Close()

	for _, tc := range []struct {
		protocol Protocol
		wantErr  bool
	}{
		{ProtocolCursor, false},
		{ProtocolBinary, true},
		{ProtocolCSV, true},
	} {
		src, part := openPartition(t, ctx, dsn, "SELECT 'a=>1,b=>NULL'::hstore AS h", tc.protocol)
		parser, err := part.Parser(ctx)
		if err != nil {
			t.Fatalf("protocol %v: Parser: %v", tc.protocol, err)
		}
		if _, _, err := parser.FetchNext(); err != nil {
			t.Fatalf("protocol %v: FetchNext: %v", tc.protocol, err)
		}
		_, err = parser.ProduceHstore()
		if tc.wantErr && err == nil {
			t.Fatalf("protocol %v: expected hstore to fail", tc.protocol)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("protocol %v: unexpected error: %v", tc.protocol, err)
		}
		part.Close()
		src.Close()
	}
}

// S6: ResultRows derives a count of 0 for an always-false predicate.
func TestIntegrationResultRowsZeroForFalsePredicate(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	src, err := NewSource(ctx, Config{DSN: dsn, NConn: 1})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()

	q := Raw("SELECT 1 WHERE false")
	src.SetQueries([]Query{q})
	src.SetOriginQuery(&q)
	if err := src.FetchMetadata(ctx); err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	n, err := src.ResultRows(ctx)
	if err != nil {
		t.Fatalf("ResultRows: %v", err)
	}
	if n == nil || *n != 0 {
		t.Fatalf("got %v, want 0", n)
	}
}

// S7: SetDataOrder rejects anything but RowMajor.
func TestIntegrationSetDataOrderRejectsColumnMajor(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	src, err := NewSource(ctx, Config{DSN: dsn, NConn: 1})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()

	if err := src.SetDataOrder(ColumnMajor); err == nil {
		t.Fatal("expected UnsupportedDataOrder error")
	}
}

// S8: a single-connection pool serializes two partitions without deadlock.
func TestIntegrationSingleConnectionSerializesPartitions(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	src, err := NewSource(ctx, Config{DSN: dsn, NConn: 1})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()

	src.SetQueries([]Query{Raw("SELECT 1::int4"), Raw("SELECT 2::int4")})
	if err := src.FetchMetadata(ctx); err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}

	parts, err := src.Partition(ctx, ProtocolBinary)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d partitions, want 2", len(parts))
	}

	for i, part := range parts {
		func() {
			defer part.Close()
			parser, err := part.Parser(ctx)
			if err != nil {
				t.Fatalf("partition %d: Parser: %v", i, err)
			}
			n, isLast, err := parser.FetchNext()
			if err != nil || n != 1 || !isLast {
				t.Fatalf("partition %d: got (%d, %v, %v), want (1, true, nil)", i, n, isLast, err)
			}
		}()
	}
}
