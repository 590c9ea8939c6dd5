package resolve

import (
	"fmt"
	"strings"

	"bpmastats/internal/ddl"
	"bpmastats/internal/extract"
	"bpmastats/internal/schema"
	"bpmastats/internal/sqlgen"
	"bpmastats/internal/textnorm"
)

// SubSelect renders the match chain as SQL the store evaluates at load time:
// COALESCE((sub-select on scientific), (sub-select on common), NULL). Empty
// names are left out; with neither name it is plain NULL.
func SubSelect(f ddl.Flavor, table, sci, common string) (sqlgen.Raw, error) {
	var parts []string
	for _, step := range []struct {
		field Field
		name  string
	}{{Scientific, sci}, {Common, common}} {
		name := textnorm.Clean(step.name)
		if name == "" {
			continue
		}
		lit, err := sqlgen.Literal(f, name)
		if err != nil {
			return "", err
		}
		col := ddl.QuoteIdent(f, step.field.Column())
		pred := fmt.Sprintf("LOWER(TRIM(%s)) = LOWER(TRIM(%s))", col, lit)
		if f == ddl.MSSQL {
			parts = append(parts, fmt.Sprintf("(SELECT TOP 1 %s FROM %s WHERE %s)",
				ddl.QuoteIdent(f, "id"), ddl.QuoteFQN(f, table), pred))
			continue
		}
		parts = append(parts, fmt.Sprintf("(SELECT %s FROM %s WHERE %s LIMIT 1)",
			ddl.QuoteIdent(f, "id"), ddl.QuoteFQN(f, table), pred))
	}
	if len(parts) == 0 {
		return "NULL", nil
	}
	return sqlgen.Raw("COALESCE(" + strings.Join(append(parts, "NULL"), ", ") + ")"), nil
}

// EmbeddedRef adapts SubSelect to schema.SpeciesRef. A name that cannot be
// rendered leaves the row unmatched.
func EmbeddedRef(f ddl.Flavor, table string) schema.SpeciesRef {
	return func(rec extract.RescueRecord) any {
		raw, err := SubSelect(f, table, rec.ScientificName, rec.CommonName)
		if err != nil {
			return nil
		}
		return raw
	}
}
