package pgsource

// Fixed PostgreSQL builtin catalog OIDs (see the server's pg_type.dat;
// these numbers are wire-protocol constants, not driver-specific). hstore
// has no fixed OID since it ships as a contrib extension — its OID is
// resolved per-pool at runtime, see hstore.go.
const (
	oidBool             = 16
	oidBytea            = 17
	oidName             = 19
	oidInt8             = 20
	oidInt2             = 21
	oidInt4             = 23
	oidText             = 25
	oidJSON             = 114
	oidFloat4           = 700
	oidFloat8           = 701
	oidBoolArray        = 1000
	oidByteaArray       = 1001
	oidInt2Array        = 1005
	oidInt4Array        = 1007
	oidTextArray        = 1009
	oidInt8Array        = 1016
	oidFloat4Array      = 1021
	oidFloat8Array      = 1022
	oidBPChar           = 1042
	oidVarchar          = 1043
	oidDate             = 1082
	oidTime             = 1083
	oidTimestamp        = 1114
	oidTimestampArray   = 1115
	oidDateArray        = 1182
	oidTimestamptz      = 1184
	oidTimestamptzArray = 1185
	oidNumericArray     = 1231
	oidNumeric          = 1700
	oidUUID             = 2950
	oidUUIDArray        = 2951
	oidJSONB            = 3802
	oidJSONBArray       = 3807
)

// logicalTypeForOID maps a catalog OID to this package's logical Type.
// hstoreOID is the extension's runtime-resolved OID (0 if the extension
// isn't installed on this database).
func logicalTypeForOID(oid uint32, hstoreOID uint32) (Type, bool) {
	switch oid {
	case oidBool:
		return TypeBool, true
	case oidInt2:
		return TypeInt2, true
	case oidInt4:
		return TypeInt4, true
	case oidInt8:
		return TypeInt8, true
	case oidFloat4:
		return TypeFloat4, true
	case oidFloat8:
		return TypeFloat8, true
	case oidNumeric:
		return TypeNumeric, true
	case oidBoolArray:
		return TypeBoolArray, true
	case oidInt2Array:
		return TypeInt2Array, true
	case oidInt4Array:
		return TypeInt4Array, true
	case oidInt8Array:
		return TypeInt8Array, true
	case oidFloat4Array:
		return TypeFloat4Array, true
	case oidFloat8Array:
		return TypeFloat8Array, true
	case oidNumericArray:
		return TypeNumericArray, true
	case oidText:
		return TypeText, true
	case oidBPChar:
		return TypeBpChar, true
	case oidVarchar:
		return TypeVarChar, true
	case oidName:
		return TypeName, true
	case oidBytea:
		return TypeByteA, true
	case oidTime:
		return TypeTime, true
	case oidTimestamp:
		return TypeTimestamp, true
	case oidTimestamptz:
		return TypeTimestampTz, true
	case oidDate:
		return TypeDate, true
	case oidUUID:
		return TypeUUID, true
	case oidJSON:
		return TypeJSON, true
	case oidJSONB:
		return TypeJSONB, true
	default:
		if hstoreOID != 0 && oid == hstoreOID {
			return TypeHstore, true
		}
		return TypeUnknown, false
	}
}

// postgresTypePair derives the catalog OID to record in pg_schema for
// binary COPY given the OID actually reported by the server and the
// logical type it maps to. This collapses bpchar/varchar/name onto text,
// which share an identical binary wire representation.
func postgresTypePair(oid uint32, logical Type) uint32 {
	switch logical {
	case TypeBpChar, TypeVarChar, TypeName:
		return oidText
	default:
		return oid
	}
}
