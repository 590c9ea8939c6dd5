package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bpmastats/internal/ddl"
)

// Literal renders v as a SQL literal for f.
func Literal(f ddl.Flavor, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case Raw:
		return string(t), nil
	case string:
		return quoteString(f, t)
	case *string:
		if t == nil {
			return "NULL", nil
		}
		return quoteString(f, *t)
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("sqlgen: non-finite number %v", t)
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		if f == ddl.Postgres {
			return strings.ToUpper(strconv.FormatBool(t)), nil
		}
		if t {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		return "'" + t.Format("2006-01-02") + "'", nil
	}
	return "", fmt.Errorf("sqlgen: unsupported value type %T", v)
}

func quoteString(f ddl.Flavor, s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("sqlgen: string contains NUL byte")
	}
	s = strings.ReplaceAll(s, "'", "''")
	switch f {
	case ddl.MySQL:
		s = strings.ReplaceAll(s, `\`, `\\`)
	case ddl.MSSQL:
		return "N'" + s + "'", nil
	}
	return "'" + s + "'", nil
}
