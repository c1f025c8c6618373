package pgsource

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Parser streams rows off a Partition's connection in batches and exposes
// the current cell through the Producer interface. Its usage pattern is
// fixed: call FetchNext until isLast is true, and between fetches walk the
// buffered rows cell by cell via the Produce* methods, advancing with Next.
type Parser interface {
	Producer

	// FetchNext drops any previously buffered rows, pulls up to the
	// Partition's BufferSize rows from the wire, and resets the internal
	// cursor to (0, 0). isLast is true when fewer than BufferSize rows
	// came back, meaning the stream is exhausted after this batch.
	FetchNext() (rowsFetched int, isLast bool, err error)

	// Next advances the cursor to the following cell in row-major order,
	// wrapping to the next row after the last column. Calling it past the
	// final cell of the final fetched batch is a programming error.
	Next() (row int, col int)
}

// Producer is the per-type decode surface a Parser exposes for the cell the
// cursor currently points at. Each logical Type has a pair of methods: the
// plain form, used when the column's schema says NOT NULL, and the
// Nullable form, which returns (nil, nil) for a SQL NULL. When the cell
// cannot be decoded as the method's target type, the CSV and cursor
// parsers return CannotProduceError and the binary parser returns a decode
// error of kind ErrKindPostgres; a protocol with no decode path for a Type
// (hstore over binary or CSV)
// returns an Unimplemented error instead.
type Producer interface {
	ProduceBool() (bool, error)
	ProduceBoolNullable() (*bool, error)
	ProduceInt2() (int16, error)
	ProduceInt2Nullable() (*int16, error)
	ProduceInt4() (int32, error)
	ProduceInt4Nullable() (*int32, error)
	ProduceInt8() (int64, error)
	ProduceInt8Nullable() (*int64, error)
	ProduceFloat4() (float32, error)
	ProduceFloat4Nullable() (*float32, error)
	ProduceFloat8() (float64, error)
	ProduceFloat8Nullable() (*float64, error)
	ProduceNumeric() (decimal.Decimal, error)
	ProduceNumericNullable() (*decimal.Decimal, error)

	ProduceBoolArray() ([]bool, error)
	ProduceBoolArrayNullable() (*[]bool, error)
	ProduceInt2Array() ([]int16, error)
	ProduceInt2ArrayNullable() (*[]int16, error)
	ProduceInt4Array() ([]int32, error)
	ProduceInt4ArrayNullable() (*[]int32, error)
	ProduceInt8Array() ([]int64, error)
	ProduceInt8ArrayNullable() (*[]int64, error)
	ProduceFloat4Array() ([]float32, error)
	ProduceFloat4ArrayNullable() (*[]float32, error)
	ProduceFloat8Array() ([]float64, error)
	ProduceFloat8ArrayNullable() (*[]float64, error)
	ProduceNumericArray() ([]decimal.Decimal, error)
	ProduceNumericArrayNullable() (*[]decimal.Decimal, error)

	ProduceText() (string, error)
	ProduceTextNullable() (*string, error)
	ProduceBpChar() (string, error)
	ProduceBpCharNullable() (*string, error)
	ProduceVarChar() (string, error)
	ProduceVarCharNullable() (*string, error)
	ProduceName() (string, error)
	ProduceNameNullable() (*string, error)
	ProduceByteA() ([]byte, error)
	ProduceByteANullable() (*[]byte, error)

	ProduceTime() (time.Duration, error)
	ProduceTimeNullable() (*time.Duration, error)
	ProduceTimestamp() (time.Time, error)
	ProduceTimestampNullable() (*time.Time, error)
	ProduceTimestampTz() (time.Time, error)
	ProduceTimestampTzNullable() (*time.Time, error)
	ProduceDate() (time.Time, error)
	ProduceDateNullable() (*time.Time, error)

	ProduceUUID() (uuid.UUID, error)
	ProduceUUIDNullable() (*uuid.UUID, error)
	ProduceJSON() ([]byte, error)
	ProduceJSONNullable() (*[]byte, error)
	ProduceJSONB() ([]byte, error)
	ProduceJSONBNullable() (*[]byte, error)
	ProduceHstore() (map[string]*string, error)
	ProduceHstoreNullable() (*map[string]*string, error)
}

// cursor implements the row-major walk shared by every Parser
// implementation: next() returns the cell the caller should read, then
// advances column-first, wrapping to the next row after the last column.
type cursor struct {
	row, col int
	ncols    int
}

func (c *cursor) reset() {
	c.row, c.col = 0, 0
}

func (c *cursor) current() (int, int) {
	return c.row, c.col
}

func (c *cursor) next() (int, int) {
	row, col := c.row, c.col
	c.col++
	if c.col >= c.ncols {
		c.col = 0
		c.row++
	}
	return row, col
}

// wrongType builds the CannotProduceError used when a Produce* method
// doesn't match the schema's logical type for the current column.
func wrongType(target string, schema Schema, col int) *Error {
	got := TypeUnknown
	if col >= 0 && col < len(schema) {
		got = schema[col].Type
	}
	return cannotProduce(target, got.String())
}
