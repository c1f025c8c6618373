package pgsource

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dataxfer/pgsource/internal/oidcache"
)

// Source holds a connection pool and the query list for one bulk-read run.
// It is created with NewSource, configured via the Set* methods, and then
// consumed exactly once by Partition. Go cannot enforce move semantics, so
// calling any method after Partition is a programming error and its
// behavior is undefined.
type Source struct {
	pool *pgxpool.Pool
	cfg  Config

	dataOrder    DataOrder
	queries      []Query
	originQuery  *Query
	names        []string
	schema       Schema
	pgSchema     []uint32
	metadataDone bool

	oidCache  *oidcache.Cache
	hstoreOID uint32

	spent bool
}

// NewSource builds the connection pool and returns an empty Source ready
// for SetQueries/SetOriginQuery/FetchMetadata.
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	cfg = cfg.withDefaults()
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Source{
		pool:      pool,
		cfg:       cfg,
		dataOrder: RowMajor,
		oidCache:  oidcache.New(),
	}, nil
}

// SetDataOrder accepts only RowMajor; any other order fails with
// UnsupportedDataOrderError wrapped as ErrKindConnectorX.
func (s *Source) SetDataOrder(order DataOrder) error {
	if order != RowMajor {
		return newErr(ErrKindConnectorX, "", &UnsupportedDataOrderError{Order: order})
	}
	s.dataOrder = order
	return nil
}

// SetQueries replaces the list of per-partition queries.
func (s *Source) SetQueries(queries []Query) {
	s.queries = append([]Query(nil), queries...)
}

// SetOriginQuery sets (or clears, with nil) the query ResultRows derives a
// COUNT(*) from.
func (s *Source) SetOriginQuery(query *Query) {
	s.originQuery = query
}

// FetchMetadata prepares the first query to learn its column names and
// catalog types without executing it, and derives the logical schema.
// Precondition: SetQueries was called with a non-empty slice.
func (s *Source) FetchMetadata(ctx context.Context) error {
	if len(s.queries) == 0 {
		return otherErr("fetch_metadata: queries must be non-empty", nil)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return poolErr("checkout connection", err)
	}
	defer conn.Release()

	stmt, err := conn.Conn().Prepare(ctx, "", s.queries[0].String())
	if err != nil {
		return postgresErr("prepare", err)
	}

	s.hstoreOID, err = resolveHstoreOID(ctx, s.pool, s.oidCache)
	if err != nil {
		return err
	}

	notNull, err := fetchNotNull(ctx, s.pool, stmt.Fields)
	if err != nil {
		return err
	}

	names := make([]string, len(stmt.Fields))
	schema := make(Schema, len(stmt.Fields))
	pgSchema := make([]uint32, len(stmt.Fields))
	for i, fd := range stmt.Fields {
		names[i] = fd.Name
		logical, ok := logicalTypeForOID(fd.DataTypeOID, s.hstoreOID)
		if !ok {
			return typeConversionErr(fd.DataTypeOID)
		}
		schema[i] = ColumnType{Type: logical, Nullable: !notNull[i]}
		pgSchema[i] = postgresTypePair(fd.DataTypeOID, logical)
	}

	s.names = names
	s.schema = schema
	s.pgSchema = pgSchema
	s.metadataDone = true
	return nil
}

// fetchNotNull resolves NOT NULL metadata for each field description via
// pg_attribute, defaulting to "nullable" (false = not-not-null) for
// expression results that have no backing table column.
func fetchNotNull(ctx context.Context, pool *pgxpool.Pool, fields []pgconn.FieldDescription) ([]bool, error) {
	notNull := make([]bool, len(fields))
	byTable := map[uint32][]int{}
	for i, f := range fields {
		if f.TableOID != 0 && f.TableAttributeNumber != 0 {
			byTable[f.TableOID] = append(byTable[f.TableOID], i)
		}
	}
	for tableOID, idxs := range byTable {
		attnums := make([]int16, len(idxs))
		for j, idx := range idxs {
			attnums[j] = int16(fields[idx].TableAttributeNumber)
		}
		rows, err := pool.Query(ctx,
			"SELECT attnum, attnotnull FROM pg_attribute WHERE attrelid = $1 AND attnum = ANY($2)",
			tableOID, attnums)
		if err != nil {
			return nil, postgresErr("fetch not-null metadata", err)
		}
		result := map[int16]bool{}
		for rows.Next() {
			var attnum int16
			var attnotnull bool
			if err := rows.Scan(&attnum, &attnotnull); err != nil {
				rows.Close()
				return nil, postgresErr("fetch not-null metadata", err)
			}
			result[attnum] = attnotnull
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, postgresErr("fetch not-null metadata", err)
		}
		for _, idx := range idxs {
			notNull[idx] = result[int16(fields[idx].TableAttributeNumber)]
		}
	}
	return notNull, nil
}

// ResultRows runs the count-derivation query over the origin query, if
// one was set. Returns nil when no origin query is set.
func (s *Source) ResultRows(ctx context.Context) (*int, error) {
	if s.originQuery == nil {
		return nil, nil
	}
	n, err := runCountQuery(ctx, s.pool, *s.originQuery)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Names returns a copy of the recorded column names.
func (s *Source) Names() []string {
	return append([]string(nil), s.names...)
}

// Schema returns a copy of the recorded logical schema.
func (s *Source) Schema() Schema {
	return append(Schema(nil), s.schema...)
}

// Partition consumes the Source, checking out one connection per query and
// returning Partitions in input order. The Source must not be used again
// afterwards.
func (s *Source) Partition(ctx context.Context, protocol Protocol) ([]*Partition, error) {
	if !s.metadataDone {
		return nil, otherErr("partition: FetchMetadata must run first", nil)
	}
	if s.spent {
		return nil, otherErr("partition: source already consumed", nil)
	}
	s.spent = true

	partitions := make([]*Partition, 0, len(s.queries))
	for _, q := range s.queries {
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			for _, p := range partitions {
				p.Close()
			}
			return nil, poolErr("checkout connection", err)
		}
		partitions = append(partitions, &Partition{
			conn:      conn,
			query:     q,
			protocol:  protocol,
			schema:    append(Schema(nil), s.schema...),
			pgSchema:  append([]uint32(nil), s.pgSchema...),
			ncols:     len(s.schema),
			hstoreOID: s.hstoreOID,
			bufSize:   s.cfg.BufferSize,
		})
	}
	return partitions, nil
}

// Close releases the Source's connection pool. Safe to call even if
// Partition was never invoked.
func (s *Source) Close() {
	s.pool.Close()
}
