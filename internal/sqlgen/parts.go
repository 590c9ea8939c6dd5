package sqlgen

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bpmastats/internal/ddl"
)

// DefaultPartSize is the number of statements per part file.
const DefaultPartSize = 20

// Part is one slice of the statement stream written to its own file.
type Part struct {
	Index      int
	Count      int
	Statements []Statement
}

// Range returns the first and last statement Seq in the part.
func (p Part) Range() (first, last int) {
	if len(p.Statements) == 0 {
		return 0, 0
	}
	return p.Statements[0].Seq, p.Statements[len(p.Statements)-1].Seq
}

// Split groups statements into parts of perPart statements. Every statement
// of head lands in part 1, ahead of the first perPart statements of body.
func Split(head, body []Statement, perPart int) []Part {
	if perPart <= 0 {
		perPart = DefaultPartSize
	}
	if len(head) == 0 && len(body) == 0 {
		return nil
	}
	firstN := perPart
	if firstN > len(body) {
		firstN = len(body)
	}
	groups := [][]Statement{append(append([]Statement(nil), head...), body[:firstN]...)}
	groups = append(groups, Partition(body[firstN:], perPart)...)

	parts := make([]Part, len(groups))
	for i, g := range groups {
		parts[i] = Part{Index: i + 1, Count: len(groups), Statements: g}
	}
	return parts
}

// FileName is "<prefix>_PARTE_<i>_DE_<n>.sql".
func FileName(prefix string, p Part) string {
	return fmt.Sprintf("%s_PARTE_%d_DE_%d.sql", prefix, p.Index, p.Count)
}

// Header describes the run a part belongs to.
type Header struct {
	Title     string
	RunID     string
	Dialect   ddl.Flavor
	Generated time.Time
	// Total is the number of statements across all parts.
	Total int
}

const rule = "-- ============================================\n"

// Write renders the part with its self-describing header comment.
func (p Part) Write(w io.Writer, h Header) error {
	first, last := p.Range()
	title := h.Title
	if title == "" {
		title = "BPMA STATISTICS LOAD"
	}
	var b strings.Builder
	b.WriteString(rule)
	fmt.Fprintf(&b, "-- %s - PART %d OF %d\n", strings.ToUpper(title), p.Index, p.Count)
	b.WriteString(rule)
	fmt.Fprintf(&b, "-- Batches %d to %d of %d\n", first, last, h.Total)
	fmt.Fprintf(&b, "-- Run %s, dialect %s, generated %s\n", h.RunID, h.Dialect, h.Generated.UTC().Format(time.RFC3339))
	if p.Count > 1 {
		b.WriteString("-- Apply the parts in ascending order (part 1, part 2, ...)\n")
	}
	b.WriteString(rule)
	for _, st := range p.Statements {
		fmt.Fprintf(&b, "\n-- batch %d: %s (%d rows)\n%s\n", st.Seq, st.Table, len(st.Rows), st.SQL)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
