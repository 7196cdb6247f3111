package format

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// #region table

// Mode selects how report tables render.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal tables
	Markdown             // pipe tables for pasting into docs
)

// ParseMode maps "markdown"/"md" to Markdown; anything else is ASCII.
func ParseMode(s string) Mode {
	switch s {
	case "markdown", "md":
		return Markdown
	default:
		return ASCII
	}
}

// Table accumulates rows and renders them once in its Mode.
type Table struct {
	w    table.Writer
	mode Mode
}

func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &Table{w: w, mode: m}
}

func (t *Table) Header(cols ...any) { t.w.AppendHeader(table.Row(cols)) }
func (t *Table) Row(vals ...any)    { t.w.AppendRow(table.Row(vals)) }
func (t *Table) Footer(vals ...any) { t.w.AppendFooter(table.Row(vals)) }

// AlignRight right-aligns the given 1-based columns.
func (t *Table) AlignRight(cols ...int) {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	t.w.SetColumnConfigs(cfgs)
}

func (t *Table) String() string {
	if t.mode == Markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}

// #endregion table
