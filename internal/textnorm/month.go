package textnorm

var monthByAbbrev = map[string]int{
	"JAN": 1, "FEV": 2, "MAR": 3, "ABR": 4, "MAI": 5, "JUN": 6,
	"JUL": 7, "AGO": 8, "SET": 9, "OUT": 10, "NOV": 11, "DEZ": 12,
	// English sheets occasionally slip in.
	"FEB": 2, "APR": 4, "MAY": 5, "AUG": 8, "SEP": 9, "OCT": 10, "DEC": 12,
}

var monthByName = map[string]int{
	"JANEIRO": 1, "FEVEREIRO": 2, "MARCO": 3, "ABRIL": 4, "MAIO": 5, "JUNHO": 6,
	"JULHO": 7, "AGOSTO": 8, "SETEMBRO": 9, "OUTUBRO": 10, "NOVEMBRO": 11, "DEZEMBRO": 12,
	"JANUARY": 1, "FEBRUARY": 2, "MARCH": 3, "APRIL": 4, "JUNE": 6,
	"JULY": 7, "AUGUST": 8, "SEPTEMBER": 9, "OCTOBER": 10, "NOVEMBER": 11, "DECEMBER": 12,
}

var monthAbbrev = [13]string{"", "JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"}

// Month resolves a month header cell ("Jan", "MAR.", "Março") to 1..12. The
// folded cell must be a three-letter abbreviation or a full month name; longer
// words that merely start with an abbreviation ("SETOR") are rejected.
func Month(cell string) (int, bool) {
	f := Fold(cell)
	if len(f) == 3 {
		m, ok := monthByAbbrev[f]
		return m, ok
	}
	m, ok := monthByName[f]
	return m, ok
}

// MonthAbbrev returns the canonical three-letter Portuguese abbreviation for
// month m, or "" when m is outside 1..12.
func MonthAbbrev(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthAbbrev[m]
}
