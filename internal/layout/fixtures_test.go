package layout

import "bpmastats/internal/grid"

func rescueSheet() *grid.Sheet {
	return grid.NewSheet("2024", [][]string{
		{"RESGATE DE FAUNA 2024"},
		{},
		{"AVES"},
		{"", "", "", "JAN", "FEV", "MAR"},
		{"NOME POPULAR", "NOME CIENTÍFICO", "ORDEM"},
		{"Tucano", "Ramphastos toco", "Piciformes", "1", "", "2"},
		{"Arara", "Ara ararauna", "Psittaciformes", "0", "3", ""},
		{"", "", "", "", "", ""},
		{"MAMÍFEROS"},
		{"", "", "", "JAN", "FEV", "MAR"},
		{"NOME POPULAR", "NOME CIENTÍFICO", "ORDEM"},
		{"Gambá", "Didelphis albiventris", "Didelphimorphia", "4", "", ""},
	})
}

func indicatorSheet() *grid.Sheet {
	return grid.NewSheet("2023", [][]string{
		{"BPMA - ATENDIMENTOS 2023"},
		{"NATUREZA", "MESES"},
		{"", "JAN", "FEV", "MAR"},
		{"Atendimentos registrados", "10", "12", "0"},
		{"Termos Circunstanciados", "1", "", "2"},
		{},
		{"Observações gerais"},
	})
}

func rosterSheet() *grid.Sheet {
	return grid.NewSheet("FERIAS", [][]string{
		{"MAT", "NOME", "ANO", "1ª PARCELA", "", "2ª PARCELA", "", "SEI"},
		{"", "", "", "INÍCIO", "TÉRMINO", "INÍCIO", "TÉRMINO", ""},
		{"123", "Fulano", "2024", "45292", "45306", "2024-07-01", "2024-07-10", "0001"},
		{"456", "Beltrano", "2024", "2024-02-05", "2024-02-14", "", "", "0002"},
	})
}
