package widgets_test

import (
	"strings"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Min: vxfw.Size{},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

func cellText(s vaxis.Cell) string {
	return s.Character.Grapheme
}

// rowText joins the graphemes of one surface row, with blanks for empty cells.
func rowText(s vxfw.Surface, row int) string {
	var b strings.Builder
	w := int(s.Size.Width)
	for col := 0; col < w; col++ {
		g := cellText(s.Buffer[row*w+col])
		if g == "" {
			g = " "
		}
		b.WriteString(g)
	}
	return strings.TrimRight(b.String(), " ")
}
