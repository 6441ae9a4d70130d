package storage

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// Text converts a fetched value to its export text form.
//
// nil renders as "" (NULL). Driver types such as pgtype.Numeric are
// rendered through their driver.Valuer. ok is false for values that have no
// text form (maps, slices other than []byte, opaque structs); callers
// render those as "" as well rather than failing the export.
func Text(v any) (s string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	case *big.Int:
		if t == nil {
			return "", true
		}
		return t.String(), true
	case fmt.Stringer:
		return t.String(), true
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return "", false
		}
		if _, again := dv.(driver.Valuer); again {
			return "", false
		}
		return Text(dv)
	default:
		return "", false
	}
}

// normalizeValue converts driver []byte values to string so ResultSet rows
// are safe to keep after the driver reuses its buffers.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// NormalizeRow applies normalizeValue to every element of row in place.
func NormalizeRow(row []any) []any {
	for i := range row {
		row[i] = normalizeValue(row[i])
	}
	return row
}
