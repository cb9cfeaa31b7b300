package planner

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTable renders the plan as a table, one row per record plus a summary
// footer.
func (p *Plan) WriteTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Action", "Changed fields", "Revision"})

	for _, item := range p.Items {
		revision := ""
		if item.Revision != nil {
			revision = item.Revision.String()
		}
		t.AppendRow(table.Row{item.ID, item.Action, changedFields(item.Diff), revision})
	}

	s := p.Summary()
	t.AppendFooter(table.Row{
		humanize.Comma(int64(len(p.Items))) + " records",
		fmt.Sprintf("%d create, %d update, %d unchanged, %d orphan", s.Create, s.Update, s.Unchanged, s.Orphan),
		humanize.Comma(int64(s.Skipped)) + " skipped",
		"",
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// changedFields lists the top-level fields of a change-set.
func changedFields(diff any) string {
	m, ok := diff.(map[string]any)
	if !ok {
		return ""
	}
	return strings.Join(slices.Sorted(maps.Keys(m)), ", ")
}
