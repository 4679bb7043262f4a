package pg

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Column describes one result column.
type Column struct {
	Name string
	Type string
}

// Result is the structured outcome of one executed statement. It is always
// produced, even for statements with no result set: DDL and COPY yield empty
// Rows with RowCount reflecting the affected-row count.
type Result struct {
	Succeeded bool
	RowCount  int64
	Rows      [][]string
	Columns   []Column
}

// fieldDescToColumns converts pgx field descriptions to result columns.
func fieldDescToColumns(fds []pgconn.FieldDescription) []Column {
	if len(fds) == 0 {
		return nil
	}
	cols := make([]Column, len(fds))
	for i, fd := range fds {
		cols[i] = Column{
			Name: fd.Name,
			Type: typeOIDToName(fd.DataTypeOID),
		}
	}
	return cols
}

// valuesToStrings converts a row of driver values to strings.
func valuesToStrings(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = valueToString(v)
	}
	return out
}

func valueToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int8, int16, int32, int64, int:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case []string:
		return "{" + strings.Join(val, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// typeOIDToName maps the PostgreSQL type OIDs this engine commonly sees to
// readable names. Unknown OIDs keep their numeric form.
func typeOIDToName(oid uint32) string {
	switch oid {
	case 16:
		return "bool"
	case 17:
		return "bytea"
	case 20:
		return "int8"
	case 21:
		return "int2"
	case 23:
		return "int4"
	case 25:
		return "text"
	case 26:
		return "oid"
	case 114:
		return "json"
	case 700:
		return "float4"
	case 701:
		return "float8"
	case 1009:
		return "text[]"
	case 1033:
		return "aclitem"
	case 1034:
		return "aclitem[]"
	case 1042:
		return "bpchar"
	case 1043:
		return "varchar"
	case 1082:
		return "date"
	case 1114:
		return "timestamp"
	case 1184:
		return "timestamptz"
	case 1700:
		return "numeric"
	case 2950:
		return "uuid"
	case 3802:
		return "jsonb"
	case 19:
		return "name"
	default:
		return fmt.Sprintf("oid:%d", oid)
	}
}
