package ui

import (
	"fmt"

	"github.com/idilsaglam/todomvc/internal/model"
)

// Row is an item with its 1-based position in the full list, so indexes stay
// stable when a filter hides some rows.
type Row struct {
	Index int
	Item  model.Item
}

const maxTitle = 80

// Header renders the counts line shown above every listing.
func Header(active, completed int, filter model.Filter) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d  %s",
		C(t.Title, "Todos"),
		C(t.Success, t.SymDone), completed,
		C(t.Pending, t.SymUnchecked), active,
		C(t.Accent, "Total"), active+completed,
		C(t.Muted, "["+filter.String()+"]"),
	)
}

// ItemsLeft is the TodoMVC footer text.
func ItemsLeft(active int) string {
	if active == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", active)
}

// Lines renders rows one per line.
func Lines(rows []Row) []string {
	t := Current()
	if len(rows) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		box, color := t.BoxUnchecked, t.Muted
		if r.Item.Completed {
			box, color = t.BoxChecked, t.Success
		}
		title := r.Item.Title
		if len([]rune(title)) > maxTitle {
			title = string([]rune(title)[:maxTitle-3]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s", Dim(fmt.Sprintf("%2d.", r.Index)), C(color, box), title))
	}
	return out
}

// GroupedLines renders active rows, then completed rows, under headings.
func GroupedLines(rows []Row) []string {
	t := Current()
	var pend, done []Row
	for _, r := range rows {
		if r.Item.Completed {
			done = append(done, r)
		} else {
			pend = append(pend, r)
		}
	}
	section := func(name string, rs []Row) []string {
		lines := []string{C(t.Accent, name)}
		if len(rs) == 0 {
			return append(lines, C(t.Muted, "(none)"))
		}
		return append(lines, Lines(rs)...)
	}
	lines := section("Active", pend)
	lines = append(lines, "")
	return append(lines, section("Completed", done)...)
}
