// Package schema is the dimensional model the statistics are loaded into:
// the time and indicator dimensions plus the indicator, rescue and leave
// fact tables. It owns the table definitions, the upsert descriptors and the
// mapping from merged records to rows.
package schema

import (
	"strings"

	"bpmastats/internal/ddl"
	"bpmastats/internal/sqlgen"
)

// Table base names.
const (
	DimTempo        = "dim_tempo"
	DimIndicador    = "dim_indicador_bpma"
	DimEspecies     = "dim_especies_fauna"
	FactIndicador   = "fact_indicador_mensal_bpma"
	FactResgate     = "fact_resgate_fauna_especie_mensal"
	FactFerias      = "fact_ferias_parcela"
	DefaultSchema   = "public"
	speciesIDColumn = "id_especie_fauna"
)

// Model binds the tables to a database schema ("public" by default).
type Model struct {
	Schema string
}

// FQN qualifies a base table name.
func (m Model) FQN(table string) string {
	s := strings.TrimSpace(m.Schema)
	if s == "" {
		s = DefaultSchema
	}
	return s + "." + table
}

// Tables returns the definitions in creation order.
func (m Model) Tables() []ddl.TableDef {
	return []ddl.TableDef{
		{
			FQN: m.FQN(DimTempo),
			Columns: []ddl.ColumnDef{
				{Name: "id", Type: "int", PrimaryKey: true},
				{Name: "ano", Type: "smallint"},
				{Name: "mes", Type: "smallint", Check: "%s BETWEEN 1 AND 12"},
				{Name: "mes_abreviacao", Type: "text"},
				{Name: "inicio_mes", Type: "date"},
			},
			Unique: [][]string{{"ano", "mes"}},
		},
		{
			FQN: m.FQN(DimIndicador),
			Columns: []ddl.ColumnDef{
				{Name: "id", Type: "text", PrimaryKey: true},
				{Name: "nome", Type: "text"},
				{Name: "categoria", Type: "text", Nullable: true},
			},
		},
		{
			FQN: m.FQN(FactIndicador),
			Columns: []ddl.ColumnDef{
				{Name: "tempo_id", Type: "int", PrimaryKey: true},
				{Name: "indicador_id", Type: "text", PrimaryKey: true},
				{Name: "valor", Type: "numeric"},
			},
		},
		{
			FQN: m.FQN(FactResgate),
			Columns: []ddl.ColumnDef{
				{Name: "id", Type: "uuid", PrimaryKey: true, AutoUUID: true},
				{Name: "tempo_id", Type: "int"},
				{Name: "id_regiao_administrativa", Type: "uuid", Nullable: true},
				{Name: speciesIDColumn, Type: "uuid", Nullable: true},
				{Name: "nome_cientifico", Type: "text"},
				{Name: "nome_popular", Type: "text", Nullable: true},
				{Name: "quantidade", Type: "int"},
			},
			Unique: [][]string{{"tempo_id", "nome_cientifico"}},
		},
		{
			FQN: m.FQN(FactFerias),
			Columns: []ddl.ColumnDef{
				{Name: "matricula", Type: "text", PrimaryKey: true},
				{Name: "ano", Type: "smallint", PrimaryKey: true},
				{Name: "parcela", Type: "smallint", PrimaryKey: true, Check: "%s >= 1"},
				{Name: "data_inicio", Type: "date"},
				{Name: "data_fim", Type: "date"},
				{Name: "dias", Type: "int", Check: "%s >= 1"},
				{Name: "processo_sei", Type: "text", Nullable: true},
			},
		},
	}
}

// Statements renders one CREATE statement per table for f. Postgres gets
// pgcrypto first for gen_random_uuid on older servers.
func (m Model) Statements(f ddl.Flavor) ([]string, error) {
	var out []string
	if f == ddl.Postgres {
		out = append(out, "CREATE EXTENSION IF NOT EXISTS pgcrypto;")
	}
	for _, t := range m.Tables() {
		s, err := ddl.BuildCreateTableSQL(f, t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Script is the schema.sql text for f.
func (m Model) Script(f ddl.Flavor) (string, error) {
	stmts, err := m.Statements(f)
	if err != nil {
		return "", err
	}
	return strings.Join(stmts, "\n\n") + "\n", nil
}

// Tempo is dim_tempo: inserted once, never updated.
func (m Model) Tempo() sqlgen.TableDescriptor {
	return sqlgen.TableDescriptor{
		Table:           m.FQN(DimTempo),
		Columns:         []string{"id", "ano", "mes", "mes_abreviacao", "inicio_mes"},
		ConflictColumns: []string{"id"},
		BatchSize:       sqlgen.DefaultDimBatchSize,
	}
}

// Indicador is dim_indicador_bpma: name and category follow the latest run.
func (m Model) Indicador() sqlgen.TableDescriptor {
	return sqlgen.TableDescriptor{
		Table:           m.FQN(DimIndicador),
		Columns:         []string{"id", "nome", "categoria"},
		ConflictColumns: []string{"id"},
		UpdateColumns:   []string{"nome", "categoria"},
		BatchSize:       sqlgen.DefaultDimBatchSize,
	}
}

// IndicadorFact is fact_indicador_mensal_bpma keyed by (tempo_id, indicador_id).
func (m Model) IndicadorFact() sqlgen.TableDescriptor {
	return sqlgen.TableDescriptor{
		Table:           m.FQN(FactIndicador),
		Columns:         []string{"tempo_id", "indicador_id", "valor"},
		ConflictColumns: []string{"tempo_id", "indicador_id"},
		UpdateColumns:   []string{"valor"},
		BatchSize:       sqlgen.DefaultBatchSize,
	}
}

// ResgateFact is fact_resgate_fauna_especie_mensal keyed by (tempo_id,
// nome_cientifico). A resolved species id is never replaced by NULL.
func (m Model) ResgateFact() sqlgen.TableDescriptor {
	return sqlgen.TableDescriptor{
		Table:           m.FQN(FactResgate),
		Columns:         []string{"tempo_id", speciesIDColumn, "nome_cientifico", "nome_popular", "quantidade"},
		ConflictColumns: []string{"tempo_id", "nome_cientifico"},
		UpdateColumns:   []string{"quantidade", "nome_popular", speciesIDColumn},
		UpdateExpr:      map[string]string{speciesIDColumn: "COALESCE({new}, {old})"},
		BatchSize:       sqlgen.DefaultRescueBatchSize,
	}
}

// FeriasFact is fact_ferias_parcela keyed by (matricula, ano, parcela).
func (m Model) FeriasFact() sqlgen.TableDescriptor {
	return sqlgen.TableDescriptor{
		Table:           m.FQN(FactFerias),
		Columns:         []string{"matricula", "ano", "parcela", "data_inicio", "data_fim", "dias", "processo_sei"},
		ConflictColumns: []string{"matricula", "ano", "parcela"},
		UpdateColumns:   []string{"data_inicio", "data_fim", "dias", "processo_sei"},
		BatchSize:       sqlgen.DefaultBatchSize,
	}
}
