package pgsource

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// csvParser decodes PostgreSQL's `COPY ... TO STDOUT WITH CSV` wire format.
// Every cell arrives as text; csvParser buffers each row as its raw fields
// plus a per-field quoted flag (the stdlib encoding/csv reader is not used
// because it discards that flag, and the quoted/unquoted distinction is
// exactly how COPY CSV distinguishes a NULL field from an empty string).
type csvParser struct {
	cursor
	part *Partition
	r    *bufio.Reader

	pw      *io.PipeWriter
	copyErr chan error

	rowbuf [][]csvField
}

type csvField struct {
	text   string
	quoted bool
}

func newCSVParser(ctx context.Context, p *Partition) (Parser, error) {
	pr, pw := io.Pipe()
	cp := &csvParser{
		part:    p,
		r:       bufio.NewReaderSize(pr, 64*1024),
		pw:      pw,
		copyErr: make(chan error, 1),
	}
	cp.cursor.ncols = p.ncols

	go func() {
		_, err := p.conn.Conn().PgConn().CopyTo(ctx, pw, wrapCopyCSV(p.query))
		pw.CloseWithError(err)
		cp.copyErr <- err
	}()

	return cp, nil
}

func (p *csvParser) FetchNext() (int, bool, error) {
	p.rowbuf = p.rowbuf[:0]
	p.cursor.reset()

	for len(p.rowbuf) < p.part.bufSize {
		fields, err := readCSVRecord(p.r)
		if err == io.EOF {
			if err := <-p.copyErr; err != nil {
				return len(p.rowbuf), true, postgresErr("copy to stdout", err)
			}
			return len(p.rowbuf), true, nil
		}
		if err != nil {
			return 0, false, csvErr("read csv record", err)
		}
		p.rowbuf = append(p.rowbuf, fields)
	}
	return len(p.rowbuf), len(p.rowbuf) < p.part.bufSize, nil
}

func (p *csvParser) Next() (int, int) {
	return p.cursor.next()
}

func (p *csvParser) curCol() int {
	_, col := p.cursor.current()
	return col
}

func (p *csvParser) field(col int) (csvField, error) {
	row, _ := p.cursor.current()
	if row >= len(p.rowbuf) {
		return csvField{}, csvErr("cursor past end of buffered rows", nil)
	}
	fields := p.rowbuf[row]
	if col >= len(fields) {
		return csvField{}, csvErr(fmt.Sprintf("row has %d fields, want column %d", len(fields), col), nil)
	}
	return fields[col], nil
}

// isNull reports whether field f represents a SQL NULL: an entirely
// unquoted empty field, matching COPY CSV's convention (an empty string
// value is always emitted quoted as "").
func (f csvField) isNull() bool {
	return !f.quoted && f.text == ""
}

func readCSVRecord(r *bufio.Reader) ([]csvField, error) {
	var fields []csvField
	for {
		f, term, err := readCSVField(r)
		if err != nil {
			if err == io.EOF && f.text == "" && !f.quoted && len(fields) == 0 {
				return nil, io.EOF
			}
			if err != io.EOF {
				return nil, err
			}
		}
		fields = append(fields, f)
		if term == ',' {
			continue
		}
		return fields, nil
	}
}

// readCSVField reads one field up to the next unquoted ',' or record
// terminator, returning the terminator byte seen (0 for EOF).
func readCSVField(r *bufio.Reader) (csvField, byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return csvField{}, 0, io.EOF
	}
	if b[0] == '"' {
		r.ReadByte()
		var sb strings.Builder
		for {
			c, err := r.ReadByte()
			if err != nil {
				return csvField{}, 0, csvErr("unterminated quoted csv field", err)
			}
			if c == '"' {
				next, err := r.Peek(1)
				if err == nil && next[0] == '"' {
					r.ReadByte()
					sb.WriteByte('"')
					continue
				}
				break
			}
			sb.WriteByte(c)
		}
		term, err := consumeCSVTerminator(r)
		return csvField{text: sb.String(), quoted: true}, term, err
	}

	var sb strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			return csvField{text: sb.String(), quoted: false}, 0, io.EOF
		}
		switch c {
		case ',':
			return csvField{text: sb.String(), quoted: false}, ',', nil
		case '\n':
			return csvField{text: sb.String(), quoted: false}, '\n', nil
		case '\r':
			if next, err := r.Peek(1); err == nil && next[0] == '\n' {
				r.ReadByte()
			}
			return csvField{text: sb.String(), quoted: false}, '\n', nil
		default:
			sb.WriteByte(c)
		}
	}
}

// consumeCSVTerminator reads the delimiter or line terminator immediately
// following a closing quote.
func consumeCSVTerminator(r *bufio.Reader) (byte, error) {
	c, err := r.ReadByte()
	if err != nil {
		return 0, nil
	}
	switch c {
	case ',':
		return ',', nil
	case '\n':
		return '\n', nil
	case '\r':
		if next, err := r.Peek(1); err == nil && next[0] == '\n' {
			r.ReadByte()
		}
		return '\n', nil
	default:
		return 0, csvErr(fmt.Sprintf("unexpected byte %q after quoted csv field", c), nil)
	}
}

// fixTzOffset pads a PostgreSQL timestamptz offset like "+00" or "-05" out
// to "+00:00"/"-05:00" so it parses with Go's "-07:00" layout.
func fixTzOffset(s string) string {
	idx := strings.LastIndexAny(s, "+-")
	if idx < 0 {
		return s
	}
	offset := s[idx:]
	if strings.Count(offset, ":") == 0 {
		return s + ":00"
	}
	return s
}

func parseArrayElements(s string) []string {
	s = strings.TrimSpace(s)
	if s == "{}" || s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '\\' && i+1 < len(s) {
				cur.WriteByte(s[i+1])
				i++
				continue
			}
			if c == '"' {
				inQuote = false
				continue
			}
			cur.WriteByte(c)
		case c == '"':
			inQuote = true
		case c == '{':
			depth++
			cur.WriteByte(c)
		case c == '}':
			depth--
			cur.WriteByte(c)
		case c == ',' && depth == 0:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, cur.String())
	return out
}

func (p *csvParser) ProduceBool() (bool, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return false, err
	}
	switch f.text {
	case "t":
		return true, nil
	case "f":
		return false, nil
	default:
		return false, cannotProduce("Bool", f.text)
	}
}

func (p *csvParser) ProduceBoolNullable() (*bool, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceBool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt2() (int16, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(f.text, 10, 16)
	if err != nil {
		return 0, cannotProduceErr("Int2", f.text, err)
	}
	return int16(v), nil
}

func (p *csvParser) ProduceInt2Nullable() (*int16, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceInt2()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt4() (int32, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(f.text, 10, 32)
	if err != nil {
		return 0, cannotProduceErr("Int4", f.text, err)
	}
	return int32(v), nil
}

func (p *csvParser) ProduceInt4Nullable() (*int32, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceInt4()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt8() (int64, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(f.text, 10, 64)
	if err != nil {
		return 0, cannotProduceErr("Int8", f.text, err)
	}
	return v, nil
}

func (p *csvParser) ProduceInt8Nullable() (*int64, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceInt8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceFloat4() (float32, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(f.text, 32)
	if err != nil {
		return 0, cannotProduceErr("Float4", f.text, err)
	}
	return float32(v), nil
}

func (p *csvParser) ProduceFloat4Nullable() (*float32, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceFloat4()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceFloat8() (float64, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(f.text, 64)
	if err != nil {
		return 0, cannotProduceErr("Float8", f.text, err)
	}
	return v, nil
}

func (p *csvParser) ProduceFloat8Nullable() (*float64, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceFloat8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceNumeric() (decimal.Decimal, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return decimal.Decimal{}, err
	}
	v, err := decimal.NewFromString(f.text)
	if err != nil {
		return decimal.Decimal{}, cannotProduceErr("Numeric", f.text, err)
	}
	return v, nil
}

func (p *csvParser) ProduceNumericNullable() (*decimal.Decimal, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceNumeric()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func csvArray[T any](p *csvParser, parseOne func(string) (T, error)) ([]T, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	elems := parseArrayElements(f.text)
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		if e == "NULL" {
			var zero T
			out = append(out, zero)
			continue
		}
		v, err := parseOne(e)
		if err != nil {
			return nil, cannotProduceErr("Array", f.text, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *csvParser) ProduceBoolArray() ([]bool, error) {
	return csvArray(p, func(s string) (bool, error) { return s == "t", nil })
}
func (p *csvParser) ProduceBoolArrayNullable() (*[]bool, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceBoolArray()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt2Array() ([]int16, error) {
	return csvArray(p, func(s string) (int16, error) {
		v, err := strconv.ParseInt(s, 10, 16)
		return int16(v), err
	})
}
func (p *csvParser) ProduceInt2ArrayNullable() (*[]int16, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceInt2Array()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt4Array() ([]int32, error) {
	return csvArray(p, func(s string) (int32, error) {
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	})
}
func (p *csvParser) ProduceInt4ArrayNullable() (*[]int32, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceInt4Array()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceInt8Array() ([]int64, error) {
	return csvArray(p, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}
func (p *csvParser) ProduceInt8ArrayNullable() (*[]int64, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceInt8Array()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceFloat4Array() ([]float32, error) {
	return csvArray(p, func(s string) (float32, error) {
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	})
}
func (p *csvParser) ProduceFloat4ArrayNullable() (*[]float32, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceFloat4Array()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceFloat8Array() ([]float64, error) {
	return csvArray(p, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}
func (p *csvParser) ProduceFloat8ArrayNullable() (*[]float64, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceFloat8Array()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceNumericArray() ([]decimal.Decimal, error) {
	return csvArray(p, decimal.NewFromString)
}
func (p *csvParser) ProduceNumericArrayNullable() (*[]decimal.Decimal, error) {
	f, err := p.field(p.curCol())
	if err != nil || f.isNull() {
		return nil, err
	}
	v, err := p.ProduceNumericArray()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceText() (string, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return "", err
	}
	return f.text, nil
}
func (p *csvParser) ProduceTextNullable() (*string, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v := f.text
	return &v, nil
}
func (p *csvParser) ProduceBpChar() (string, error)           { return p.ProduceText() }
func (p *csvParser) ProduceBpCharNullable() (*string, error)  { return p.ProduceTextNullable() }
func (p *csvParser) ProduceVarChar() (string, error)          { return p.ProduceText() }
func (p *csvParser) ProduceVarCharNullable() (*string, error) { return p.ProduceTextNullable() }
func (p *csvParser) ProduceName() (string, error)             { return p.ProduceText() }
func (p *csvParser) ProduceNameNullable() (*string, error)    { return p.ProduceTextNullable() }

func (p *csvParser) ProduceByteA() ([]byte, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(f.text, "\\x") {
		return nil, cannotProduce("ByteA", f.text)
	}
	b, err := hex.DecodeString(f.text[2:])
	if err != nil {
		return nil, hexErr("decode bytea hex payload", err)
	}
	return b, nil
}
func (p *csvParser) ProduceByteANullable() (*[]byte, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceByteA()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceTime() (time.Duration, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return 0, err
	}
	t, err := time.Parse("15:04:05", f.text)
	if err != nil {
		return 0, cannotProduceErr("Time", f.text, err)
	}
	return t.Sub(t.Truncate(24 * time.Hour)), nil
}
func (p *csvParser) ProduceTimeNullable() (*time.Duration, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceTime()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceTimestamp() (time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return time.Time{}, err
	}
	layout := "2006-01-02 15:04:05"
	if strings.Contains(f.text, ".") {
		layout = "2006-01-02 15:04:05.999999"
	}
	t, err := time.Parse(layout, f.text)
	if err != nil {
		return time.Time{}, cannotProduceErr("Timestamp", f.text, err)
	}
	return t, nil
}
func (p *csvParser) ProduceTimestampNullable() (*time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceTimestamp()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceTimestampTz() (time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return time.Time{}, err
	}
	text := fixTzOffset(f.text)
	layout := "2006-01-02 15:04:05-07:00"
	if strings.Contains(text, ".") {
		layout = "2006-01-02 15:04:05.999999-07:00"
	}
	t, err := time.Parse(layout, text)
	if err != nil {
		return time.Time{}, cannotProduceErr("TimestampTz", f.text, err)
	}
	return t, nil
}
func (p *csvParser) ProduceTimestampTzNullable() (*time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceTimestampTz()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceDate() (time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", f.text)
	if err != nil {
		return time.Time{}, cannotProduceErr("Date", f.text, err)
	}
	return t, nil
}
func (p *csvParser) ProduceDateNullable() (*time.Time, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceDate()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceUUID() (uuid.UUID, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return uuid.UUID{}, err
	}
	u, err := uuid.Parse(f.text)
	if err != nil {
		return uuid.UUID{}, cannotProduceErr("UUID", f.text, err)
	}
	return u, nil
}
func (p *csvParser) ProduceUUIDNullable() (*uuid.UUID, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceUUID()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *csvParser) ProduceJSON() ([]byte, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	return []byte(f.text), nil
}
func (p *csvParser) ProduceJSONNullable() (*[]byte, error) {
	f, err := p.field(p.curCol())
	if err != nil {
		return nil, err
	}
	if f.isNull() {
		return nil, nil
	}
	v, err := p.ProduceJSON()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
func (p *csvParser) ProduceJSONB() ([]byte, error)          { return p.ProduceJSON() }
func (p *csvParser) ProduceJSONBNullable() (*[]byte, error) { return p.ProduceJSONNullable() }

func (p *csvParser) ProduceHstore() (map[string]*string, error) {
	return nil, unimplementedErr("hstore is not supported over the csv protocol")
}
func (p *csvParser) ProduceHstoreNullable() (*map[string]*string, error) {
	return nil, unimplementedErr("hstore is not supported over the csv protocol")
}
