package widgets

import (
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// BarGauge is a horizontal count gauge, e.g. active slots out of all slots.
//
//	ACTIVE [████████░░░░]  2/3
type BarGauge struct {
	Label    string // left label, e.g. "ACTIVE"
	Count    int
	Total    int
	BarWidth int // character width of the [████░░░░] portion (excluding brackets)
}

const (
	barFilled = '█' // U+2588
	barEmpty  = '░' // U+2591
)

// barColor is green when every item counts, red when none do, yellow between.
func barColor(count, total int) vaxis.Color {
	switch {
	case total == 0 || count >= total:
		return vaxis.IndexColor(2) // green
	case count == 0:
		return vaxis.IndexColor(1) // red
	default:
		return vaxis.IndexColor(3) // yellow
	}
}

// Draw renders the gauge as a single row.
func (bg *BarGauge) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, bg)

	col := uint16(0)
	put := func(text string, style vaxis.Style) {
		for _, ch := range ctx.Characters(text) {
			if col >= ctx.Max.Width {
				return
			}
			s.WriteCell(col, 0, vaxis.Cell{Character: ch, Style: style})
			col += uint16(ch.Width)
		}
	}

	put(bg.Label+" [", vaxis.Style{Attribute: vaxis.AttrBold})

	count := bg.Count
	if count < 0 {
		count = 0
	}
	if bg.Total > 0 && count > bg.Total {
		count = bg.Total
	}
	filled := 0
	if bg.Total > 0 {
		filled = count * bg.BarWidth / bg.Total
	}
	color := barColor(count, bg.Total)
	for i := 0; i < bg.BarWidth; i++ {
		if i < filled {
			put(string(barFilled), vaxis.Style{Foreground: color})
		} else {
			put(string(barEmpty), vaxis.Style{Foreground: vaxis.IndexColor(8)}) // dim for empty
		}
	}

	put(fmt.Sprintf("] %d/%d", count, bg.Total), vaxis.Style{})
	return s, nil
}
