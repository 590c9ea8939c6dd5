package schema

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"bpmastats/internal/ddl"
	"bpmastats/internal/extract"
	"bpmastats/internal/merge"
	"bpmastats/internal/sqlgen"
)

func TestCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  string
	}{
		{"Atendimentos registrados", CategoryAtendimentos},
		{"ATENDIMENTOS REGISTRADOS (RAP)", CategoryAtendimentos},
		{"Crimes contra a Fauna", CategoryOcorrencias},
		{"Crime contra os Recursos Hidricos", CategoryOcorrencias},
		{"Quantidade de óbitos", CategoryResgateTotal},
		{"Corte de árvores", CategoryOutros},
		{"Palestras educativas", CategoryOutros},
		{"", CategoryOutros},
	}
	for _, tt := range tests {
		if got := Category(tt.label); got != tt.want {
			t.Fatalf("Category(%q): got %q want %q", tt.label, got, tt.want)
		}
	}
}

func TestModelDescriptorsAreValid(t *testing.T) {
	t.Parallel()

	m := Model{}
	for _, d := range []sqlgen.TableDescriptor{m.Tempo(), m.Indicador(), m.IndicadorFact(), m.ResgateFact(), m.FeriasFact()} {
		if err := d.Validate(); err != nil {
			t.Fatalf("%s: %v", d.Table, err)
		}
		if !strings.HasPrefix(d.Table, "public.") {
			t.Fatalf("default schema: got %s", d.Table)
		}
	}
	if got := (Model{Schema: "stats"}).FQN(DimTempo); got != "stats.dim_tempo" {
		t.Fatalf("FQN: got %s", got)
	}
}

func TestScriptPerFlavor(t *testing.T) {
	t.Parallel()

	for _, f := range []ddl.Flavor{ddl.Postgres, ddl.SQLite, ddl.MySQL, ddl.MSSQL} {
		script, err := Model{}.Script(f)
		if err != nil {
			t.Fatalf("Script(%s): %v", f, err)
		}
		for _, table := range []string{DimTempo, DimIndicador, FactIndicador, FactResgate, FactFerias} {
			if !strings.Contains(script, table) {
				t.Fatalf("Script(%s) misses %s", f, table)
			}
		}
		if f == ddl.Postgres && !strings.HasPrefix(script, "CREATE EXTENSION IF NOT EXISTS pgcrypto;") {
			t.Fatalf("postgres script must enable pgcrypto first")
		}
	}
}

func sampleRecords() *merge.Records {
	m := merge.NewRecords()
	m.Add(&extract.Result{
		Indicators: []extract.IndicatorRecord{
			{Period: extract.Period{Year: 2024, Month: 2}, Label: "Flagrantes", Quantity: 3},
			{Period: extract.Period{Year: 2024, Month: 1}, Label: "Flagrantes", Quantity: 1},
			{Period: extract.Period{Year: 2024, Month: 1}, Label: "FLAGRANTES", Quantity: 2},
		},
		Rescues: []extract.RescueRecord{
			{Period: extract.Period{Year: 2023, Month: 12}, CommonName: "Tucano", ScientificName: "Ramphastos  toco", Quantity: 4},
			{Period: extract.Period{Year: 2023, Month: 12}, CommonName: "Bicho sem nome", Quantity: 1},
		},
		Spans: []extract.SpanRecord{{
			Year: 2024, Registration: "123", Parcel: 1,
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Days:  15,
		}},
	})
	return m
}

func TestRows(t *testing.T) {
	t.Parallel()

	recs := sampleRecords()

	periods := Periods(recs)
	if want := []extract.Period{{Year: 2023, Month: 12}, {Year: 2024, Month: 1}, {Year: 2024, Month: 2}}; !reflect.DeepEqual(periods, want) {
		t.Fatalf("Periods: got %#v want %#v", periods, want)
	}
	tempo := TempoRows(periods)
	if want := (sqlgen.Row{202312, 2023, 12, "DEZ", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)}); !reflect.DeepEqual(tempo[0], want) {
		t.Fatalf("TempoRows[0]: got %#v want %#v", tempo[0], want)
	}

	dims := IndicadorRows(recs)
	if want := []sqlgen.Row{{"flagrantes", "FLAGRANTES", CategoryOcorrencias}}; !reflect.DeepEqual(dims, want) {
		t.Fatalf("IndicadorRows: got %#v want %#v", dims, want)
	}

	facts := IndicadorFactRows(recs)
	if want := []sqlgen.Row{{202402, "flagrantes", 3}, {202401, "flagrantes", 2}}; !reflect.DeepEqual(facts, want) {
		t.Fatalf("IndicadorFactRows: got %#v want %#v", facts, want)
	}

	resc := ResgateFactRows(recs, func(r extract.RescueRecord) any {
		if r.ScientificName != "" {
			return "uuid-1"
		}
		return nil
	})
	want := []sqlgen.Row{
		{202312, "uuid-1", "Ramphastos toco", "Tucano", 4},
		{202312, nil, "Bicho sem nome", "Bicho sem nome", 1},
	}
	if !reflect.DeepEqual(resc, want) {
		t.Fatalf("ResgateFactRows: got %#v want %#v", resc, want)
	}

	ferias := FeriasFactRows(recs)
	if len(ferias) != 1 || ferias[0][5] != 15 || ferias[0][6] != nil {
		t.Fatalf("FeriasFactRows: got %#v", ferias)
	}
}
