package pgsource

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	shopspring_numeric "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var binaryCopySignature = [11]byte{'P', 'G', 'C', 'O', 'P', 'Y', '\n', 0xff, '\r', '\n', 0}

// binaryParser decodes PostgreSQL's `COPY ... TO STDOUT WITH BINARY` wire
// format. Rows arrive as raw per-cell byte slices (nil meaning SQL NULL)
// and are decoded lazily at Produce time through pgtype.Map, which already
// knows the binary representation of every builtin type this package
// supports. hstore has no registered binary codec, so binaryParser never
// attempts to decode it.
type binaryParser struct {
	cursor
	part *Partition
	r    *bufio.Reader

	pw      *io.PipeWriter
	copyErr chan error

	typeMap *pgtype.Map
	rowbuf  [][][]byte
	done    bool
}

func newBinaryParser(ctx context.Context, p *Partition) (Parser, error) {
	pr, pw := io.Pipe()
	bp := &binaryParser{
		part:    p,
		r:       bufio.NewReaderSize(pr, 64*1024),
		pw:      pw,
		copyErr: make(chan error, 1),
		typeMap: pgtype.NewMap(),
	}
	shopspring_numeric.Register(bp.typeMap)
	bp.cursor.ncols = p.ncols

	go func() {
		_, err := p.conn.Conn().PgConn().CopyTo(ctx, pw, wrapCopyBinary(p.query))
		pw.CloseWithError(err)
		bp.copyErr <- err
	}()

	var sig [11]byte
	if _, err := io.ReadFull(bp.r, sig[:]); err != nil {
		return nil, postgresErr("read binary copy signature", err)
	}
	if sig != binaryCopySignature {
		return nil, postgresErr("read binary copy signature", fmt.Errorf("unexpected signature %x", sig))
	}
	var flags, extLen uint32
	if err := binary.Read(bp.r, binary.BigEndian, &flags); err != nil {
		return nil, postgresErr("read binary copy header flags", err)
	}
	if err := binary.Read(bp.r, binary.BigEndian, &extLen); err != nil {
		return nil, postgresErr("read binary copy header extension", err)
	}
	if extLen > 0 {
		if _, err := io.CopyN(io.Discard, bp.r, int64(extLen)); err != nil {
			return nil, postgresErr("discard binary copy header extension", err)
		}
	}
	return bp, nil
}

func (p *binaryParser) FetchNext() (int, bool, error) {
	p.rowbuf = p.rowbuf[:0]
	p.cursor.reset()

	for len(p.rowbuf) < p.part.bufSize {
		var nfields int16
		if err := binary.Read(p.r, binary.BigEndian, &nfields); err != nil {
			if err == io.EOF {
				return len(p.rowbuf), true, nil
			}
			return 0, false, postgresErr("read binary row header", err)
		}
		if nfields == -1 {
			// trailer
			if err := <-p.copyErr; err != nil {
				return 0, false, postgresErr("copy to stdout", err)
			}
			return len(p.rowbuf), true, nil
		}
		row := make([][]byte, nfields)
		for i := 0; i < int(nfields); i++ {
			var flen int32
			if err := binary.Read(p.r, binary.BigEndian, &flen); err != nil {
				return 0, false, postgresErr("read binary field length", err)
			}
			if flen == -1 {
				row[i] = nil
				continue
			}
			buf := make([]byte, flen)
			if _, err := io.ReadFull(p.r, buf); err != nil {
				return 0, false, postgresErr("read binary field", err)
			}
			row[i] = buf
		}
		p.rowbuf = append(p.rowbuf, row)
	}
	return len(p.rowbuf), len(p.rowbuf) < p.part.bufSize, nil
}

func (p *binaryParser) Next() (int, int) {
	return p.cursor.next()
}

func (p *binaryParser) cell(col int) ([]byte, bool) {
	row, _ := p.cursor.current()
	raw := p.rowbuf[row][col]
	return raw, raw == nil
}

func (p *binaryParser) decode(col int, target any) (bool, error) {
	raw, isNull := p.cell(col)
	if isNull {
		return true, nil
	}
	oid := p.part.pgSchema[col]
	if err := p.typeMap.Scan(oid, pgtype.BinaryFormatCode, raw, target); err != nil {
		return false, postgresErr("decode binary cell", err)
	}
	return false, nil
}

func (p *binaryParser) ProduceBool() (bool, error) {
	var v bool
	if _, err := p.decode(p.curCol(), &v); err != nil {
		return false, err
	}
	return v, nil
}

func (p *binaryParser) ProduceBoolNullable() (*bool, error) {
	var v bool
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceInt2() (int16, error) {
	var v int16
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceInt2Nullable() (*int16, error) {
	var v int16
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceInt4() (int32, error) {
	var v int32
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceInt4Nullable() (*int32, error) {
	var v int32
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceInt8() (int64, error) {
	var v int64
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceInt8Nullable() (*int64, error) {
	var v int64
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceFloat4() (float32, error) {
	var v float32
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceFloat4Nullable() (*float32, error) {
	var v float32
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceFloat8() (float64, error) {
	var v float64
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceFloat8Nullable() (*float64, error) {
	var v float64
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceNumeric() (decimal.Decimal, error) {
	var v decimal.Decimal
	_, err := p.decode(p.curCol(), &v)
	return v, err
}

func (p *binaryParser) ProduceNumericNullable() (*decimal.Decimal, error) {
	var v decimal.Decimal
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceBoolArray() ([]bool, error) {
	var v []bool
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceBoolArrayNullable() (*[]bool, error) {
	var v []bool
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceInt2Array() ([]int16, error) {
	var v []int16
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceInt2ArrayNullable() (*[]int16, error) {
	var v []int16
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceInt4Array() ([]int32, error) {
	var v []int32
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceInt4ArrayNullable() (*[]int32, error) {
	var v []int32
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceInt8Array() ([]int64, error) {
	var v []int64
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceInt8ArrayNullable() (*[]int64, error) {
	var v []int64
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceFloat4Array() ([]float32, error) {
	var v []float32
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceFloat4ArrayNullable() (*[]float32, error) {
	var v []float32
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceFloat8Array() ([]float64, error) {
	var v []float64
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceFloat8ArrayNullable() (*[]float64, error) {
	var v []float64
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceNumericArray() ([]decimal.Decimal, error) {
	var v []decimal.Decimal
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceNumericArrayNullable() (*[]decimal.Decimal, error) {
	var v []decimal.Decimal
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceText() (string, error) {
	var v string
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceTextNullable() (*string, error) {
	var v string
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceBpChar() (string, error)            { return p.ProduceText() }
func (p *binaryParser) ProduceBpCharNullable() (*string, error)   { return p.ProduceTextNullable() }
func (p *binaryParser) ProduceVarChar() (string, error)           { return p.ProduceText() }
func (p *binaryParser) ProduceVarCharNullable() (*string, error)  { return p.ProduceTextNullable() }
func (p *binaryParser) ProduceName() (string, error)              { return p.ProduceText() }
func (p *binaryParser) ProduceNameNullable() (*string, error)     { return p.ProduceTextNullable() }

func (p *binaryParser) ProduceByteA() ([]byte, error) {
	var v []byte
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceByteANullable() (*[]byte, error) {
	var v []byte
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceTime() (time.Duration, error) {
	var v pgtype.Time
	if _, err := p.decode(p.curCol(), &v); err != nil {
		return 0, err
	}
	return time.Duration(v.Microseconds) * time.Microsecond, nil
}
func (p *binaryParser) ProduceTimeNullable() (*time.Duration, error) {
	var v pgtype.Time
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	d := time.Duration(v.Microseconds) * time.Microsecond
	return &d, nil
}
func (p *binaryParser) ProduceTimestamp() (time.Time, error) {
	var v time.Time
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceTimestampNullable() (*time.Time, error) {
	var v time.Time
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceTimestampTz() (time.Time, error) {
	var v time.Time
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceTimestampTzNullable() (*time.Time, error) {
	var v time.Time
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceDate() (time.Time, error) {
	var v time.Time
	_, err := p.decode(p.curCol(), &v)
	return v, err
}
func (p *binaryParser) ProduceDateNullable() (*time.Time, error) {
	var v time.Time
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceUUID() (uuid.UUID, error) {
	var v [16]byte
	_, err := p.decode(p.curCol(), &v)
	return uuid.UUID(v), err
}
func (p *binaryParser) ProduceUUIDNullable() (*uuid.UUID, error) {
	var v [16]byte
	isNull, err := p.decode(p.curCol(), &v)
	if err != nil || isNull {
		return nil, err
	}
	u := uuid.UUID(v)
	return &u, nil
}

func (p *binaryParser) ProduceJSON() ([]byte, error) {
	raw, isNull := p.cell(p.curCol())
	if isNull {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}
func (p *binaryParser) ProduceJSONNullable() (*[]byte, error) {
	v, err := p.ProduceJSON()
	if err != nil || v == nil {
		return nil, err
	}
	return &v, nil
}
func (p *binaryParser) ProduceJSONB() ([]byte, error) {
	raw, isNull := p.cell(p.curCol())
	if isNull {
		return nil, nil
	}
	// jsonb's binary wire format is a one-byte version prefix (always 1)
	// followed by the JSON text.
	if len(raw) < 1 {
		return nil, postgresErr("decode jsonb cell", fmt.Errorf("empty jsonb payload"))
	}
	return append([]byte(nil), raw[1:]...), nil
}
func (p *binaryParser) ProduceJSONBNullable() (*[]byte, error) {
	v, err := p.ProduceJSONB()
	if err != nil || v == nil {
		return nil, err
	}
	return &v, nil
}

func (p *binaryParser) ProduceHstore() (map[string]*string, error) {
	return nil, unimplementedErr("hstore is not supported over the binary protocol")
}
func (p *binaryParser) ProduceHstoreNullable() (*map[string]*string, error) {
	return nil, unimplementedErr("hstore is not supported over the binary protocol")
}

// curCol returns the column of the cell the cursor currently points at.
// Each Produce* method reads the cell at the cursor's current position;
// callers advance to the following cell with Next after each one.
func (p *binaryParser) curCol() int {
	_, col := p.cursor.current()
	return col
}
