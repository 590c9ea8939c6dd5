package textnorm

import "testing"

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain words", in: "Crimes contra a Fauna", want: "crimes_contra_a_fauna"},
		{name: "accents", in: "Crime contra os Recursos Hídricos", want: "crime_contra_os_recursos_hidricos"},
		{name: "punctuation dropped", in: "P.A.A.I.", want: "paai"},
		{name: "dash between spaces", in: "Termos Circunstanciados - OUTRAS", want: "termos_circunstanciados_outras"},
		{name: "slash inside a word", in: "Apreensão de arma de fogo e/ou munição", want: "apreensao_de_arma_de_fogo_eou_municao"},
		{name: "parentheses", in: "Atendimentos registrados (RAP)", want: "atendimentos_registrados_rap"},
		{name: "slashes and spaces", in: "Captura de animais / Busca", want: "captura_de_animais_busca"},
		{name: "surrounding noise", in: "  -- Flagrantes --  ", want: "flagrantes"},
		{name: "cedilla and tilde", in: "Apreensão de munição", want: "apreensao_de_municao"},
		{name: "no letters", in: " - ", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Slug(tt.in)
			if got != tt.want {
				t.Fatalf("Slug(%q): got %q want %q", tt.in, got, tt.want)
			}
			if again := Slug(got); again != got {
				t.Fatalf("Slug not idempotent: Slug(%q)=%q", got, again)
			}
		})
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Nome Científico", "NOME CIENTIFICO"},
		{"  MAMÍFEROS  ", "MAMIFEROS"},
		{"Répteis:", "REPTEIS"},
		{"INÍCIO/TÉRMINO", "INICIO TERMINO"},
		{"1a PARCELA", "1A PARCELA"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Fatalf("Fold(%q): got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameKeyAndClean(t *testing.T) {
	t.Parallel()

	if got := NameKey("  Canis   lupus "); got != "canis lupus" {
		t.Fatalf("NameKey: got %q", got)
	}
	if got := NameKey("Tamanduá bandeira"); got != "tamanduá bandeira" {
		t.Fatalf("NameKey keeps accents: got %q", got)
	}
	if got := Clean("\u00a0Bubo\t virginianus\n"); got != "Bubo virginianus" {
		t.Fatalf("Clean: got %q", got)
	}
}

func TestHasPrefixToken(t *testing.T) {
	t.Parallel()

	if !HasPrefixToken("DATA INI", "INI") {
		t.Fatal("expected INI token")
	}
	if HasPrefixToken("MINIMO", "INI") {
		t.Fatal("prefix must anchor at token start")
	}
}

func TestMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"JAN", 1, true},
		{"fev", 2, true},
		{"Mar.", 3, true},
		{"Março", 3, true},
		{"DEZ", 12, true},
		{"Sep", 9, true},
		{"SETOR", 0, false},
		{"MESES", 0, false},
		{"TOTAL", 0, false},
		{"2024", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := Month(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("Month(%q): got (%d,%v) want (%d,%v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	if MonthAbbrev(3) != "MAR" || MonthAbbrev(0) != "" || MonthAbbrev(13) != "" {
		t.Fatalf("MonthAbbrev out of contract")
	}
}
