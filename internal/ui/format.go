package ui

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeLeft     = "├"
	BoxTeeRight    = "┤"
	BoxTeeTop      = "┬"
	BoxTeeBottom   = "┴"
	BoxCross       = "┼"

	BulletDiamond = "◆"
)

// AnsiRegex is compiled once for performance.
var AnsiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// GetTermWidth returns the terminal width, defaulting to 80.
func GetTermWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width == 0 {
		return 80
	}
	return width
}

// StripAnsiCodes removes ANSI escape sequences from a string.
func StripAnsiCodes(s string) string {
	return AnsiRegex.ReplaceAllString(s, "")
}

// VisibleLength returns the visible length of a string (excluding ANSI codes).
func VisibleLength(s string) int {
	return utf8.RuneCountInString(StripAnsiCodes(s))
}

// TruncateWithEllipsis truncates a string to maxLen visible runes.
// Color codes are dropped from truncated strings.
func TruncateWithEllipsis(s string, maxLen int) string {
	if VisibleLength(s) <= maxLen {
		return s
	}
	runes := []rune(StripAnsiCodes(s))
	if maxLen <= 3 {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-3]) + "..."
}

// PadRight pads a string to the specified width using visible length.
func PadRight(s string, width int) string {
	visLen := VisibleLength(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}

// PadLeft right-aligns a string in the specified width.
func PadLeft(s string, width int) string {
	visLen := VisibleLength(s)
	if visLen >= width {
		return s
	}
	return strings.Repeat(" ", width-visLen) + s
}

// PrintSection prints a section title with underline.
func PrintSection(title string) {
	fmt.Printf("\n%s%s %s%s\n", ColorBold, BulletDiamond, title, ColorReset)
	fmt.Printf("%s%s%s\n", ColorCyan, strings.Repeat(BoxHorizontal, VisibleLength(title)+2), ColorReset)
}

// PrintKeyValue prints a key-value pair. Values are never truncated so links
// stay copyable.
func PrintKeyValue(key, value, valueColor string) {
	fmt.Printf("  %s%-16s%s %s%s%s\n",
		ColorCyan, key+":", ColorReset,
		valueColor, value, ColorReset)
}

// TableColumn represents a column in a table.
type TableColumn struct {
	Header string
	Width  int
	Align  string // "left" or "right"
}

// Table represents a formatted table.
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

// NewTable creates a new table.
func NewTable(columns []TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow adds a row to the table; missing cells are left blank.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Print renders the table to stdout, shrinking columns to fit the terminal.
func (t *Table) Print() {
	if len(t.Columns) == 0 {
		return
	}
	cols := t.fit(GetTermWidth())

	t.border(cols, BoxTopLeft, BoxTeeTop, BoxTopRight)
	fmt.Print(ColorCyan + BoxVertical + ColorReset)
	for _, col := range cols {
		fmt.Printf(" %s%s%s ", ColorBold, PadRight(TruncateWithEllipsis(col.Header, col.Width), col.Width), ColorReset)
		fmt.Print(ColorCyan + BoxVertical + ColorReset)
	}
	fmt.Println()
	t.border(cols, BoxTeeLeft, BoxCross, BoxTeeRight)

	for _, row := range t.Rows {
		fmt.Print(ColorCyan + BoxVertical + ColorReset)
		for i, col := range cols {
			cell := TruncateWithEllipsis(row[i], col.Width)
			if col.Align == "right" {
				cell = PadLeft(cell, col.Width)
			} else {
				cell = PadRight(cell, col.Width)
			}
			fmt.Printf(" %s ", cell)
			fmt.Print(ColorCyan + BoxVertical + ColorReset)
		}
		fmt.Println()
	}
	t.border(cols, BoxBottomLeft, BoxTeeBottom, BoxBottomRight)
}

// fit shrinks the wide columns proportionally when the table would overflow
// termWidth. Columns of minShrinkWidth or less keep their width.
func (t *Table) fit(termWidth int) []TableColumn {
	const minShrinkWidth = 10
	available := termWidth - (len(t.Columns) + 1) - len(t.Columns)*2
	flexible := 0
	for _, col := range t.Columns {
		if col.Width > minShrinkWidth {
			flexible += col.Width
		} else {
			available -= col.Width
		}
	}
	cols := make([]TableColumn, len(t.Columns))
	copy(cols, t.Columns)
	if flexible > available && available > 0 {
		for i := range cols {
			if cols[i].Width > minShrinkWidth {
				cols[i].Width = max(minShrinkWidth, cols[i].Width*available/flexible)
			}
		}
	}
	return cols
}

func (t *Table) border(cols []TableColumn, left, mid, right string) {
	var b strings.Builder
	b.WriteString(ColorCyan + left)
	for i, col := range cols {
		b.WriteString(strings.Repeat(BoxHorizontal, col.Width+2))
		if i < len(cols)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right + ColorReset)
	fmt.Println(b.String())
}
