// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/dataxfer/pgsource"
)

// produceCell dispatches to the Producer method matching col's logical
// type and nullability, returning a plain Go value suitable for CSV/JSON
// rendering. A nil return always means SQL NULL.
func produceCell(p pgsource.Parser, col pgsource.ColumnType) (any, error) {
	switch col.Type {
	case pgsource.TypeBool:
		if col.Nullable {
			return derefAny(p.ProduceBoolNullable())
		}
		return p.ProduceBool()
	case pgsource.TypeInt2:
		if col.Nullable {
			return derefAny(p.ProduceInt2Nullable())
		}
		return p.ProduceInt2()
	case pgsource.TypeInt4:
		if col.Nullable {
			return derefAny(p.ProduceInt4Nullable())
		}
		return p.ProduceInt4()
	case pgsource.TypeInt8:
		if col.Nullable {
			return derefAny(p.ProduceInt8Nullable())
		}
		return p.ProduceInt8()
	case pgsource.TypeFloat4:
		if col.Nullable {
			return derefAny(p.ProduceFloat4Nullable())
		}
		return p.ProduceFloat4()
	case pgsource.TypeFloat8:
		if col.Nullable {
			return derefAny(p.ProduceFloat8Nullable())
		}
		return p.ProduceFloat8()
	case pgsource.TypeNumeric:
		if col.Nullable {
			return derefAny(p.ProduceNumericNullable())
		}
		return p.ProduceNumeric()
	case pgsource.TypeBoolArray:
		if col.Nullable {
			return derefAny(p.ProduceBoolArrayNullable())
		}
		return p.ProduceBoolArray()
	case pgsource.TypeInt2Array:
		if col.Nullable {
			return derefAny(p.ProduceInt2ArrayNullable())
		}
		return p.ProduceInt2Array()
	case pgsource.TypeInt4Array:
		if col.Nullable {
			return derefAny(p.ProduceInt4ArrayNullable())
		}
		return p.ProduceInt4Array()
	case pgsource.TypeInt8Array:
		if col.Nullable {
			return derefAny(p.ProduceInt8ArrayNullable())
		}
		return p.ProduceInt8Array()
	case pgsource.TypeFloat4Array:
		if col.Nullable {
			return derefAny(p.ProduceFloat4ArrayNullable())
		}
		return p.ProduceFloat4Array()
	case pgsource.TypeFloat8Array:
		if col.Nullable {
			return derefAny(p.ProduceFloat8ArrayNullable())
		}
		return p.ProduceFloat8Array()
	case pgsource.TypeNumericArray:
		if col.Nullable {
			return derefAny(p.ProduceNumericArrayNullable())
		}
		return p.ProduceNumericArray()
	case pgsource.TypeText:
		if col.Nullable {
			return derefAny(p.ProduceTextNullable())
		}
		return p.ProduceText()
	case pgsource.TypeBpChar:
		if col.Nullable {
			return derefAny(p.ProduceBpCharNullable())
		}
		return p.ProduceBpChar()
	case pgsource.TypeVarChar:
		if col.Nullable {
			return derefAny(p.ProduceVarCharNullable())
		}
		return p.ProduceVarChar()
	case pgsource.TypeName:
		if col.Nullable {
			return derefAny(p.ProduceNameNullable())
		}
		return p.ProduceName()
	case pgsource.TypeByteA:
		if col.Nullable {
			return derefAny(p.ProduceByteANullable())
		}
		return p.ProduceByteA()
	case pgsource.TypeTime:
		if col.Nullable {
			return derefAny(p.ProduceTimeNullable())
		}
		return p.ProduceTime()
	case pgsource.TypeTimestamp:
		if col.Nullable {
			return derefAny(p.ProduceTimestampNullable())
		}
		return p.ProduceTimestamp()
	case pgsource.TypeTimestampTz:
		if col.Nullable {
			return derefAny(p.ProduceTimestampTzNullable())
		}
		return p.ProduceTimestampTz()
	case pgsource.TypeDate:
		if col.Nullable {
			return derefAny(p.ProduceDateNullable())
		}
		return p.ProduceDate()
	case pgsource.TypeUUID:
		if col.Nullable {
			return derefAny(p.ProduceUUIDNullable())
		}
		return p.ProduceUUID()
	case pgsource.TypeJSON:
		if col.Nullable {
			return derefAny(p.ProduceJSONNullable())
		}
		return p.ProduceJSON()
	case pgsource.TypeJSONB:
		if col.Nullable {
			return derefAny(p.ProduceJSONBNullable())
		}
		return p.ProduceJSONB()
	case pgsource.TypeHstore:
		if col.Nullable {
			return derefAny(p.ProduceHstoreNullable())
		}
		return p.ProduceHstore()
	default:
		return nil, fmt.Errorf("produceCell: unhandled type %s", col.Type)
	}
}

// derefAny unwraps a (*T, error) pair from a Produce*Nullable call into an
// (any, error) pair, turning a nil pointer into a nil interface.
func derefAny[T any](v *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return *v, nil
}
