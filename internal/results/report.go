package results

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"

	"github.com/buckleypaul/testit/internal/ui"
)

// ReportOptions controls report rendering.
type ReportOptions struct {
	// SortKey orders each table by that column when present.
	SortKey   string
	Ascending bool
	// Plain disables styling of the console rendering.
	Plain bool
}

// Report renders one table per test to w and writes an unstyled copy to
// report.rpt in the report directory.
func (s *Store) Report(w io.Writer, opts ReportOptions) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if len(doc.Tests) == 0 {
		fmt.Fprintf(w, "No results in %s\n", s.Path())
		return nil
	}

	plain := Render(doc, opts, false)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, ReportFile), []byte(plain), 0o644); err != nil {
		return errors.Wrap(err, "write report")
	}

	if opts.Plain {
		_, err = io.WriteString(w, plain)
	} else {
		_, err = io.WriteString(w, Render(doc, opts, true))
	}
	return err
}

// Render lays out every test of doc as a table. Columns are the keys of
// the test's first record.
func Render(doc *Document, opts ReportOptions, styled bool) string {
	var b strings.Builder
	for i, t := range doc.Tests {
		if i > 0 {
			b.WriteString("\n")
		}
		if styled {
			b.WriteString(ui.Title(t.Name))
		} else {
			b.WriteString(t.Name)
		}
		b.WriteString("\n")
		if len(t.Records) == 0 {
			b.WriteString("(no records)\n")
			continue
		}

		records := t.Records
		if opts.SortKey != "" {
			records = SortRecords(records, opts.SortKey, opts.Ascending)
		}
		b.WriteString(renderTable(records, styled))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTable(records []Record, styled bool) string {
	columns := records[0].Keys()
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, key := range columns {
			row[j], _ = r.Get(key)
		}
		rows[i] = row
	}

	tbl := table.New().Headers(columns...).Rows(rows...)
	if !styled {
		cell := lipgloss.NewStyle().Padding(0, 1)
		return tbl.Border(lipgloss.ASCIIBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cell }).
			String()
	}
	return tbl.Border(lipgloss.RoundedBorder()).
		BorderStyle(ui.TableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return ui.TableHeaderStyle
			case row%2 == 1:
				return ui.TableOddRowStyle
			default:
				return ui.TableCellStyle
			}
		}).
		String()
}

// SortRecords returns records ordered by key. The column compares
// numerically when every value in it parses as a number, lexically
// otherwise. Records without key keep their relative order after the rest.
func SortRecords(records []Record, key string, ascending bool) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	less := lexical
	if numericColumn(sorted, key) {
		less = numeric
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := sorted[i].Get(key)
		b, bok := sorted[j].Get(key)
		if !aok || !bok {
			return aok && !bok
		}
		if ascending {
			return less(a, b)
		}
		return less(b, a)
	})
	return sorted
}

func numericColumn(records []Record, key string) bool {
	for _, r := range records {
		v, ok := r.Get(key)
		if !ok {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

func numeric(a, b string) bool {
	x, _ := strconv.ParseFloat(a, 64)
	y, _ := strconv.ParseFloat(b, 64)
	return x < y
}

func lexical(a, b string) bool { return a < b }
