package widgets

import (
	"sort"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// Column describes one field binding in a Table.
type Column struct {
	Key        string       // record key the column reads
	Header     string       // display label
	Width      int          // preferred character width
	MinWidth   int          // narrowest width; also widens a smaller Width
	MaxWidth   int          // widest width, 0 for no limit
	AlignRight bool         // right-align text within the column
	Sortable   bool         // may be chosen as the sort column
	Filterable bool         // advertised to filters; the table itself does not filter
	Resizable  bool         // may shrink below Width on narrow terminals
	Render     CellRenderer // nil renders with TextCell
	Style      vaxis.Style  // applied to cells rendered without their own style
}

// Table renders records with fixed-width columns using WriteCell.
//
// The table keeps a cursor, an optional sort column and an expanded flag.
// When Expandable is set a narrow glyph column is drawn first and the cursor
// row can be expanded into a key/value detail block.
type Table struct {
	Columns    []Column
	Rows       []map[string]any
	Gap        int  // spaces between columns (default 1)
	Expandable bool // draw the expand glyph column
	Focused    bool // highlight the cursor row

	cursor   int
	offset   int
	expanded bool
	sortCol  int // index into Columns, -1 for server order
	sortDesc bool
}

const expandGlyphWidth = 2

// NewTable creates a Table with the given immutable column set.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, Gap: 1, sortCol: -1}
}

// SetRows replaces the rows, keeping the cursor in range.
func (t *Table) SetRows(rows []map[string]any) {
	t.Rows = rows
	t.clampCursor()
}

// Cursor returns the cursor position in display order.
func (t *Table) Cursor() int {
	return t.cursor
}

// MoveCursor moves the cursor by delta rows and collapses any detail block.
func (t *Table) MoveCursor(delta int) {
	t.cursor += delta
	t.clampCursor()
	t.expanded = false
}

// Expanded reports whether the cursor row's detail block is shown.
func (t *Table) Expanded() bool {
	return t.expanded
}

// ToggleExpand shows or hides the detail block for the cursor row.
func (t *Table) ToggleExpand() {
	if !t.Expandable || len(t.Rows) == 0 {
		return
	}
	t.expanded = !t.expanded
}

// Selected returns the record under the cursor, or nil if there are none.
func (t *Table) Selected() map[string]any {
	order := t.order()
	if t.cursor >= len(order) {
		return nil
	}
	return t.Rows[order[t.cursor]]
}

// SortColumn returns the key of the sort column and whether it is
// descending. The key is empty when rows are in server order.
func (t *Table) SortColumn() (string, bool) {
	if t.sortCol < 0 || t.sortCol >= len(t.Columns) {
		return "", false
	}
	return t.Columns[t.sortCol].Key, t.sortDesc
}

// CycleSort advances to the next sortable column, wrapping back to server
// order after the last one.
func (t *Table) CycleSort() {
	for i := t.sortCol + 1; i < len(t.Columns); i++ {
		if t.Columns[i].Sortable {
			t.sortCol = i
			t.sortDesc = false
			return
		}
	}
	t.sortCol = -1
	t.sortDesc = false
}

// ReverseSort flips the sort direction of the current sort column.
func (t *Table) ReverseSort() {
	if t.sortCol >= 0 {
		t.sortDesc = !t.sortDesc
	}
}

func (t *Table) clampCursor() {
	if t.cursor >= len(t.Rows) {
		t.cursor = len(t.Rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

// order returns row indexes in display order. Rows are never reordered in
// place; the dataset keeps the server's order.
func (t *Table) order() []int {
	idx := make([]int, len(t.Rows))
	for i := range idx {
		idx[i] = i
	}
	key, desc := t.SortColumn()
	if key == "" {
		return idx
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := compareValues(t.Rows[idx[a]][key], t.Rows[idx[b]][key])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return idx
}

// layout returns the column widths fitted into maxWidth. Resizable columns
// give up width one cell at a time, widest first, down to their MinWidth.
func (t *Table) layout(maxWidth int) []int {
	gap := t.gap()
	widths := make([]int, len(t.Columns))
	total := 0
	if t.Expandable {
		total += expandGlyphWidth + gap
	}
	for i, c := range t.Columns {
		w := c.Width
		if w < c.MinWidth {
			w = c.MinWidth
		}
		if c.MaxWidth > 0 && w > c.MaxWidth {
			w = c.MaxWidth
		}
		widths[i] = w
		total += w
		if i > 0 {
			total += gap
		}
	}
	for total > maxWidth {
		widest := -1
		for i, c := range t.Columns {
			if !c.Resizable || widths[i] <= c.MinWidth {
				continue
			}
			if widest < 0 || widths[i] > widths[widest] {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

func (t *Table) gap() int {
	if t.Gap == 0 {
		return 1
	}
	return t.Gap
}

// writeText writes s into surf at (col, row) within maxWidth. If
// right-aligned, text is padded on the left.
func writeText(surf *vxfw.Surface, col, row uint16, maxWidth int, s string, style vaxis.Style, alignRight bool) {
	chars := vaxis.Characters(s)

	// Calculate display width
	displayWidth := 0
	for _, ch := range chars {
		displayWidth += ch.Width
	}

	// Determine starting offset for right alignment
	offset := 0
	if alignRight && displayWidth < maxWidth {
		offset = maxWidth - displayWidth
	}

	pos := offset
	for _, ch := range chars {
		if pos+ch.Width > maxWidth {
			break
		}
		surf.WriteCell(col+uint16(pos), row, vaxis.Cell{
			Character: ch,
			Style:     style,
		})
		pos += ch.Width
	}
}

// fillRow paints the whole row with style so highlighted rows span the width.
func fillRow(surf *vxfw.Surface, row uint16, width uint16, style vaxis.Style) {
	for col := uint16(0); col < width; col++ {
		surf.WriteCell(col, row, vaxis.Cell{
			Character: vaxis.Character{Grapheme: " ", Width: 1},
			Style:     style,
		})
	}
}

// detailLines returns the expanded view of a record: every key, sorted.
func detailLines(rec map[string]any) [][2]string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([][2]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, [2]string{k, FormatValue(rec[k])})
	}
	return lines
}

// Draw renders the header, the visible rows and, if expanded, the detail
// block under the cursor row. The view scrolls to keep the cursor visible.
func (t *Table) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	gap := t.gap()
	widths := t.layout(int(ctx.Max.Width))
	order := t.order()

	var detail [][2]string
	if t.expanded && t.cursor < len(order) {
		detail = detailLines(t.Rows[order[t.cursor]])
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, t)
	if ctx.Max.Height == 0 {
		return s, nil
	}

	// Header
	col := uint16(0)
	if t.Expandable {
		col += uint16(expandGlyphWidth + gap)
	}
	sortKey, sortDesc := t.SortColumn()
	for i, c := range t.Columns {
		if int(col) >= int(ctx.Max.Width) {
			break
		}
		text := c.Header
		if c.Key == sortKey && sortKey != "" {
			if sortDesc {
				text += " ▼"
			} else {
				text += " ▲"
			}
		}
		writeText(&s, col, 0, widths[i], text, vaxis.Style{Attribute: vaxis.AttrBold}, c.AlignRight)
		col += uint16(widths[i] + gap)
	}

	// Keep the cursor row (and its detail block) on screen.
	bodyHeight := int(ctx.Max.Height) - 1
	need := 1 + len(detail)
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if bodyHeight > 0 && t.cursor+need > t.offset+bodyHeight {
		t.offset = t.cursor + need - bodyHeight
		if t.offset > t.cursor {
			t.offset = t.cursor
		}
	}

	row := uint16(1)
	for pos := t.offset; pos < len(order); pos++ {
		if row >= ctx.Max.Height {
			break
		}
		rec := t.Rows[order[pos]]
		selected := t.Focused && pos == t.cursor
		rowStyle := vaxis.Style{}
		if selected {
			rowStyle.Attribute |= vaxis.AttrReverse
			fillRow(&s, row, ctx.Max.Width, rowStyle)
		}

		col := uint16(0)
		if t.Expandable {
			glyph := "▸"
			if pos == t.cursor && t.expanded {
				glyph = "▾"
			}
			writeText(&s, col, row, expandGlyphWidth, glyph, mergeStyle(vaxis.Style{Attribute: vaxis.AttrDim}, rowStyle), false)
			col += uint16(expandGlyphWidth + gap)
		}
		for i, c := range t.Columns {
			if int(col) >= int(ctx.Max.Width) {
				break
			}
			render := c.Render
			if render == nil {
				render = TextCell
			}
			cell := render(rec[c.Key])
			style := cell.Style
			if style == (vaxis.Style{}) {
				style = c.Style
			}
			writeText(&s, col, row, widths[i], cell.Text, mergeStyle(style, rowStyle), c.AlignRight)
			col += uint16(widths[i] + gap)
		}
		row++

		if pos == t.cursor {
			for _, kv := range detail {
				if row >= ctx.Max.Height {
					break
				}
				writeText(&s, uint16(expandGlyphWidth+gap), row, 24, kv[0], vaxis.Style{Attribute: vaxis.AttrDim}, false)
				valCol := expandGlyphWidth + gap + 24 + gap
				if valCol < int(ctx.Max.Width) {
					writeText(&s, uint16(valCol), row, int(ctx.Max.Width)-valCol, kv[1], vaxis.Style{}, false)
				}
				row++
			}
		}
	}

	return s, nil
}

// mergeStyle layers the row highlight over a cell style.
func mergeStyle(cell, row vaxis.Style) vaxis.Style {
	cell.Attribute |= row.Attribute
	return cell
}
