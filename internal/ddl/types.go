package ddl

import (
	"fmt"
	"strings"
)

// Flavor selects the SQL dialect a definition is rendered for.
type Flavor string

const (
	Postgres Flavor = "postgres"
	SQLite   Flavor = "sqlite"
	MySQL    Flavor = "mysql"
	MSSQL    Flavor = "mssql"
)

// ParseFlavor accepts the flavor names plus the common aliases "pg",
// "postgresql" and "sqlserver".
func ParseFlavor(s string) (Flavor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "mssql", "sqlserver":
		return MSSQL, nil
	}
	return "", fmt.Errorf("ddl: unknown dialect %q", s)
}

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type, mapped per flavor by MapType (smallint, int,
//     bigint, text, numeric, date, uuid)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression, emitted as-is
//   - AutoUUID: generate a random UUID default in the flavor's own way
//   - Check: CHECK expression where %s stands for the quoted column name
type ColumnDef struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Default    string
	AutoUUID   bool
	Check      string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. Unique lists extra UNIQUE constraints, each a column set.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
	Unique  [][]string
}

// MapType normalizes a logical type into the flavor's SQL type. Text columns
// on MySQL and SQL Server are bounded so they can take part in keys.
//
//	logical   postgres  sqlite   mysql          mssql
//	smallint  SMALLINT  INTEGER  SMALLINT       SMALLINT
//	int       INTEGER   INTEGER  INT            INT
//	bigint    BIGINT    INTEGER  BIGINT         BIGINT
//	numeric   NUMERIC   NUMERIC  DECIMAL(18,4)  DECIMAL(18,4)
//	date      DATE      TEXT     DATE           DATE
//	uuid      UUID      TEXT     CHAR(36)       UNIQUEIDENTIFIER
//	text      TEXT      TEXT     VARCHAR(255)   NVARCHAR(450)
func MapType(f Flavor, logical string) string {
	k := strings.ToLower(strings.TrimSpace(logical))
	switch f {
	case SQLite:
		switch k {
		case "smallint", "int", "integer", "bigint":
			return "INTEGER"
		case "numeric":
			return "NUMERIC"
		default:
			return "TEXT"
		}
	case MySQL:
		switch k {
		case "smallint":
			return "SMALLINT"
		case "int", "integer":
			return "INT"
		case "bigint":
			return "BIGINT"
		case "numeric":
			return "DECIMAL(18,4)"
		case "date":
			return "DATE"
		case "uuid":
			return "CHAR(36)"
		default:
			return "VARCHAR(255)"
		}
	case MSSQL:
		switch k {
		case "smallint":
			return "SMALLINT"
		case "int", "integer":
			return "INT"
		case "bigint":
			return "BIGINT"
		case "numeric":
			return "DECIMAL(18,4)"
		case "date":
			return "DATE"
		case "uuid":
			return "UNIQUEIDENTIFIER"
		default:
			return "NVARCHAR(450)"
		}
	default:
		switch k {
		case "smallint":
			return "SMALLINT"
		case "int", "integer":
			return "INTEGER"
		case "bigint":
			return "BIGINT"
		case "numeric":
			return "NUMERIC"
		case "date":
			return "DATE"
		case "uuid":
			return "UUID"
		default:
			return "TEXT"
		}
	}
}

func autoUUID(f Flavor) string {
	switch f {
	case SQLite:
		return "(lower(hex(randomblob(16))))"
	case MySQL:
		return "(UUID())"
	case MSSQL:
		return "NEWID()"
	default:
		return "gen_random_uuid()"
	}
}
