package widgets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/dustin/go-humanize"
)

// Cell is the rendered form of one value.
type Cell struct {
	Text  string
	Style vaxis.Style
}

// CellRenderer turns a raw record value into a Cell.
type CellRenderer func(v any) Cell

// TextCell renders the value as plain text.
func TextCell(v any) Cell {
	return Cell{Text: FormatValue(v)}
}

// ToggleCell renders a boolean as an on/off switch. Values that are not
// booleans fall back to text.
func ToggleCell(v any) Cell {
	on, ok := asBool(v)
	if !ok {
		return TextCell(v)
	}
	if on {
		return Cell{Text: "[●] on", Style: vaxis.Style{Foreground: vaxis.IndexColor(2)}} // green
	}
	return Cell{Text: "[ ] off", Style: vaxis.Style{Attribute: vaxis.AttrDim}}
}

// TimeAgoCell returns a renderer that shows timestamps relative to now().
// Unparseable values are shown verbatim.
func TimeAgoCell(now func() time.Time) CellRenderer {
	return func(v any) Cell {
		t, ok := asTime(v)
		if !ok {
			return TextCell(v)
		}
		return Cell{Text: humanize.RelTime(t, now(), "ago", "from now")}
	}
}

// FormatValue converts a record value to display text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(x) {
		case "true", "t":
			return true, true
		case "false", "f":
			return false, true
		}
	}
	return false, false
}

// PostgreSQL's text form of timestamptz, with and without fractional seconds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	}
	return 0, false
}

// compareValues orders two record values. Missing values sort first;
// numbers and booleans compare by value, anything else as text.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}
