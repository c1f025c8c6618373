package pgsource

// Type is the logical, library-level scalar type a PostgreSQL catalog type
// is bridged to. It carries no nullability of its own — see ColumnType.
type Type int

const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt2
	TypeInt4
	TypeInt8
	TypeFloat4
	TypeFloat8
	TypeNumeric
	TypeBoolArray
	TypeInt2Array
	TypeInt4Array
	TypeInt8Array
	TypeFloat4Array
	TypeFloat8Array
	TypeNumericArray
	TypeText
	TypeBpChar
	TypeVarChar
	TypeName
	TypeByteA
	TypeTime
	TypeTimestamp
	TypeTimestampTz
	TypeDate
	TypeUUID
	TypeJSON
	TypeJSONB
	TypeHstore
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt2:
		return "Int2"
	case TypeInt4:
		return "Int4"
	case TypeInt8:
		return "Int8"
	case TypeFloat4:
		return "Float4"
	case TypeFloat8:
		return "Float8"
	case TypeNumeric:
		return "Numeric"
	case TypeBoolArray:
		return "BoolArray"
	case TypeInt2Array:
		return "Int2Array"
	case TypeInt4Array:
		return "Int4Array"
	case TypeInt8Array:
		return "Int8Array"
	case TypeFloat4Array:
		return "Float4Array"
	case TypeFloat8Array:
		return "Float8Array"
	case TypeNumericArray:
		return "NumericArray"
	case TypeText:
		return "Text"
	case TypeBpChar:
		return "BpChar"
	case TypeVarChar:
		return "VarChar"
	case TypeName:
		return "Name"
	case TypeByteA:
		return "ByteA"
	case TypeTime:
		return "Time"
	case TypeTimestamp:
		return "Timestamp"
	case TypeTimestampTz:
		return "TimestampTz"
	case TypeDate:
		return "Date"
	case TypeUUID:
		return "UUID"
	case TypeJSON:
		return "JSON"
	case TypeJSONB:
		return "JSONB"
	case TypeHstore:
		return "HSTORE"
	default:
		return "Unknown"
	}
}

// ColumnType pairs a logical Type with the nullability derived from the
// column's NOT NULL metadata. Nullable defaults to true when that metadata
// is unavailable, e.g. the column is the result of an expression.
type ColumnType struct {
	Type     Type
	Nullable bool
}

// Schema is an ordered sequence of logical column types, parallel to the
// Source/Partition's names and pgSchema slices. All three always share the
// same length, ncols.
type Schema []ColumnType
