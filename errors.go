package pgsource

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrKind is the closed taxonomy of failure kinds this source can surface.
type ErrKind int

const (
	// ErrKindPool covers pool construction or checkout failure.
	ErrKindPool ErrKind = iota
	// ErrKindPostgres covers driver/wire/protocol failure.
	ErrKindPostgres
	// ErrKindCSV covers CSV framing failure.
	ErrKindCSV
	// ErrKindHex covers bytea hex decode failure.
	ErrKindHex
	// ErrKindJSON covers JSON decode failure.
	ErrKindJSON
	// ErrKindConnectorX covers upstream generic errors: unsupported data
	// order, cannot-produce, and similar library-level invariants.
	ErrKindConnectorX
	// ErrKindOther covers anything else, wrapped with context.
	ErrKindOther
	// ErrKindUnimplemented covers protocol/type combinations that are
	// explicitly unsupported, notably hstore on the binary and CSV
	// protocols.
	ErrKindUnimplemented
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindPool:
		return "pool"
	case ErrKindPostgres:
		return "postgres"
	case ErrKindCSV:
		return "csv"
	case ErrKindHex:
		return "hex"
	case ErrKindJSON:
		return "json"
	case ErrKindConnectorX:
		return "connectorx"
	case ErrKindUnimplemented:
		return "unimplemented"
	default:
		return "other"
	}
}

// Error is the error type every exported operation in this package returns.
// It wraps the underlying cause so errors.Is/errors.As see through it, and
// tags the cause with a Kind from a closed taxonomy so callers can branch on
// failure class without string-matching messages.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("pgsource: %s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("pgsource: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("pgsource: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func poolErr(msg string, cause error) *Error        { return newErr(ErrKindPool, msg, cause) }
func postgresErr(msg string, cause error) *Error    { return newErr(ErrKindPostgres, msg, cause) }
func csvErr(msg string, cause error) *Error         { return newErr(ErrKindCSV, msg, cause) }
func hexErr(msg string, cause error) *Error         { return newErr(ErrKindHex, msg, cause) }
func jsonErr(msg string, cause error) *Error        { return newErr(ErrKindJSON, msg, cause) }
func otherErr(msg string, cause error) *Error       { return newErr(ErrKindOther, msg, cause) }
func unimplementedErr(reason string) *Error         { return newErr(ErrKindUnimplemented, reason, nil) }

// UnsupportedDataOrderError is returned by SetDataOrder for any order other
// than RowMajor.
type UnsupportedDataOrderError struct {
	Order DataOrder
}

func (e *UnsupportedDataOrderError) Error() string {
	return fmt.Sprintf("unsupported data order: %v", e.Order)
}

// CannotProduceError is returned by a Producer method when the current
// cell's value cannot be decoded as the requested target type. It carries
// the attempted target type name and, where available, the offending raw
// payload for diagnostics.
type CannotProduceError struct {
	Target string
	Value  string
	Err    error
}

func (e *CannotProduceError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("cannot produce %s from %q", e.Target, e.Value)
	}
	return fmt.Sprintf("cannot produce %s", e.Target)
}

func (e *CannotProduceError) Unwrap() error { return e.Err }

func cannotProduce(target, value string) *Error {
	return newErr(ErrKindConnectorX, "", &CannotProduceError{Target: target, Value: value})
}

func cannotProduceErr(target, value string, cause error) *Error {
	return newErr(ErrKindConnectorX, "", &CannotProduceError{Target: target, Value: value, Err: cause})
}

// TypeConversionError is returned by the typesystem bridge when a catalog
// OID has no known logical Type mapping.
type TypeConversionError struct {
	OID uint32
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("no logical type mapping for catalog OID %d", e.OID)
}

func typeConversionErr(oid uint32) *Error {
	return newErr(ErrKindConnectorX, "", &TypeConversionError{OID: oid})
}

// SQLState best-effort extracts a PostgreSQL SQLSTATE from err, returning ""
// if err did not originate from the wire protocol. Exported so callers
// outside the package (the CLI driver's logging) can enrich log lines
// without reimplementing the pgconn.PgError unwrap.
func SQLState(err error) string {
	return pgSQLState(err)
}

// pgSQLState best-effort extracts a PostgreSQL SQLSTATE from err, returning
// "" if err did not originate from the wire protocol. Used only to enrich
// log lines; never changes control flow.
func pgSQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isConnectionIssue reports whether a PostgreSQL error code denotes a
// connection-level failure rather than a statement-level one, matching the
// classes pgerrcode groups under "Connection Exception".
func isConnectionIssue(code string) bool {
	switch code {
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.SqlclientUnableToEstablishSqlconnection,
		pgerrcode.SqlserverRejectedEstablishmentOfSqlconnection,
		pgerrcode.TransactionResolutionUnknown,
		pgerrcode.ProtocolViolation:
		return true
	default:
		return false
	}
}

// IsConnectionIssue reports whether err's SQLSTATE (if any) denotes a
// connection-level PostgreSQL failure rather than a statement-level one.
// Exported for the CLI driver, which records it as a connection_issue field
// on every failure it logs.
func IsConnectionIssue(err error) bool {
	return isConnectionIssue(pgSQLState(err))
}
