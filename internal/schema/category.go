package schema

import (
	"strings"

	"bpmastats/internal/textnorm"
)

// Indicator categories.
const (
	CategoryAtendimentos = "atendimentos"
	CategoryOcorrencias  = "ocorrencias_ambientais"
	CategoryResgateTotal = "resgate_fauna_total"
	CategoryOutros       = "outros"
)

var categories = []struct {
	name   string
	labels []string
}{
	{CategoryAtendimentos, []string{
		"Atendimentos registrados",
		"Atendimentos registrados (RAP)",
	}},
	{CategoryOcorrencias, []string{
		"Termos Circunstanciados de Ocorrência - PMDF",
		"Termos Circunstanciados - OUTRAS",
		"Em apuração",
		"Flagrantes",
		"P.A.A.I.",
		"Apreensão de arma de fogo e/ou munição",
		"Crime contra as Áreas de Proteção Permanente",
		"Crimes contra as Unidades de Conservação",
		"Crime contra o Licenciamento Ambiental",
		"Crime contra os Recursos Hídricos",
		"Crime contra os Recursos Pesqueiros",
		"Crimes contra a Administração Ambiental",
		"Crimes contra a Fauna",
		"Crimes contra a Flora",
		"Outros Crimes Ambientais",
		"Parcelamento Irregular do Solo",
	}},
	{CategoryResgateTotal, []string{
		"QUANTIDADE DE RESGATE",
		"QUANTIDADE DE SOLTURA",
		"QUANTIDADE DE ÓBITOS",
		"QUANTIDADE DE FERIDOS",
		"QUANTIDADE DE FILHOTES",
		"QUANTIDADE DE ATROPELAMENTO",
	}},
	{CategoryOutros, []string{
		"Captura de animais / Busca de Animais / Recolhimento e Remoção de Animais / Remoção de Animais",
		"Corte de Árvores",
	}},
}

// Category classifies an indicator label. A label matches a known label when
// either contains the other, ignoring case and accents; the first category in
// table order wins and unknown labels fall into "outros".
func Category(label string) string {
	l := textnorm.Fold(label)
	if l == "" {
		return CategoryOutros
	}
	for _, c := range categories {
		for _, known := range c.labels {
			k := textnorm.Fold(known)
			if strings.Contains(l, k) || strings.Contains(k, l) {
				return c.name
			}
		}
	}
	return CategoryOutros
}
