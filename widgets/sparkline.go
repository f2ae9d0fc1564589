package widgets

import (
	"math"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// Block characters for sparkline rendering (8 levels).
var sparkBlocks = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a 1-row graph of recent durations, such as the worst
// replay lag seen at each refresh, using block characters.
type Sparkline struct {
	values []time.Duration
	head   int
	count  int
}

// NewSparkline creates a Sparkline with the given ring buffer capacity.
func NewSparkline(capacity int) *Sparkline {
	return &Sparkline{
		values: make([]time.Duration, capacity),
	}
}

// Push adds a sample to the ring buffer.
func (sl *Sparkline) Push(v time.Duration) {
	sl.values[sl.head] = v
	sl.head = (sl.head + 1) % len(sl.values)
	if sl.count < len(sl.values) {
		sl.count++
	}
}

// Count returns the number of samples currently stored.
func (sl *Sparkline) Count() int {
	return sl.count
}

// Latest returns the most recent sample, or zero if there are none.
func (sl *Sparkline) Latest() time.Duration {
	if sl.count == 0 {
		return 0
	}
	return sl.values[(sl.head-1+len(sl.values))%len(sl.values)]
}

// ordered returns the stored samples in chronological order.
func (sl *Sparkline) ordered() []time.Duration {
	if sl.count == 0 {
		return nil
	}
	out := make([]time.Duration, sl.count)
	start := (sl.head - sl.count + len(sl.values)) % len(sl.values)
	for i := 0; i < sl.count; i++ {
		out[i] = sl.values[(start+i)%len(sl.values)]
	}
	return out
}

// Draw renders the sparkline as a single row. Levels are scaled between the
// smallest and largest sample on screen.
func (sl *Sparkline) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, sl)

	vals := sl.ordered()
	if len(vals) == 0 {
		return s, nil
	}

	// Limit to available width
	width := int(ctx.Max.Width)
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}

	minV, maxV := vals[0], vals[0]
	for _, v := range vals[1:] {
		minV = min(minV, v)
		maxV = max(maxV, v)
	}

	for i, v := range vals {
		level := 0
		if maxV > minV {
			level = int(math.Round(float64(v-minV) / float64(maxV-minV) * 7))
			level = min(level, 7)
		} else if maxV > 0 {
			level = 4 // flat non-zero line
		}

		for _, c := range ctx.Characters(string(sparkBlocks[level])) {
			s.WriteCell(uint16(i), 0, vaxis.Cell{
				Character: c,
				Style:     vaxis.Style{Foreground: vaxis.IndexColor(6)}, // cyan
			})
		}
	}

	return s, nil
}
