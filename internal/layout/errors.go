package layout

import "fmt"

// LayoutError reports an expected pattern that was not found. The scanner
// skips the section and carries on.
type LayoutError struct {
	Sheet  string
	Row    int
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout: sheet %q row %d: %s", e.Sheet, e.Row+1, e.Reason)
}

// MappingFailure is returned by the column mappers when a header yields no
// month and no date columns.
type MappingFailure struct {
	Sheet  string
	Row    int
	Kind   SectionKind
	Reason string
}

func (e *MappingFailure) Error() string {
	return fmt.Sprintf("layout: sheet %q row %d: cannot map %s columns: %s", e.Sheet, e.Row+1, e.Kind, e.Reason)
}
