package widgets_test

import (
	"strings"
	"testing"

	"github.com/deevus/pgrepl-tui/widgets"
)

func TestTabBar_Labels(t *testing.T) {
	tb := widgets.NewTabBar([]string{"primary", "standby", "dr"})
	if tb.Active() != 0 {
		t.Errorf("expected initial active=0, got %d", tb.Active())
	}
	if tb.Len() != 3 {
		t.Errorf("expected 3 tabs, got %d", tb.Len())
	}
}

func TestTabBar_Next(t *testing.T) {
	tb := widgets.NewTabBar([]string{"A", "B", "C"})
	tb.Next()
	if tb.Active() != 1 {
		t.Errorf("expected active=1, got %d", tb.Active())
	}
	tb.Next()
	if tb.Active() != 2 {
		t.Errorf("expected active=2, got %d", tb.Active())
	}
	// Wraps around
	tb.Next()
	if tb.Active() != 0 {
		t.Errorf("expected active=0 after wrap, got %d", tb.Active())
	}
}

func TestTabBar_Prev(t *testing.T) {
	tb := widgets.NewTabBar([]string{"A", "B", "C"})
	// Wraps backward
	tb.Prev()
	if tb.Active() != 2 {
		t.Errorf("expected active=2 after backward wrap, got %d", tb.Active())
	}
	tb.Prev()
	if tb.Active() != 1 {
		t.Errorf("expected active=1, got %d", tb.Active())
	}
}

func TestTabBar_Empty(t *testing.T) {
	tb := widgets.NewTabBar(nil)
	tb.Next()
	tb.Prev()
	if tb.Active() != 0 {
		t.Errorf("expected active=0, got %d", tb.Active())
	}
}

func TestTabBar_SetActive(t *testing.T) {
	tb := widgets.NewTabBar([]string{"A", "B", "C"})
	tb.SetActive(2)
	if tb.Active() != 2 {
		t.Errorf("expected active=2, got %d", tb.Active())
	}
	// Out of bounds is ignored
	tb.SetActive(5)
	if tb.Active() != 2 {
		t.Errorf("expected active=2 (ignored), got %d", tb.Active())
	}
	tb.SetActive(-1)
	if tb.Active() != 2 {
		t.Errorf("expected active=2 (ignored negative), got %d", tb.Active())
	}
}

func TestTabBar_Draw(t *testing.T) {
	tb := widgets.NewTabBar([]string{"primary", "standby"})
	ctx := testDrawContext(80, 1)

	s, err := tb.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Size.Height != 1 {
		t.Errorf("expected surface height=1, got %d", s.Size.Height)
	}
	if s.Size.Width != 80 {
		t.Errorf("expected surface width=80, got %d", s.Size.Width)
	}
	if got := rowText(s, 0); got != " 1 primary  |  2 standby" {
		t.Errorf("unexpected tab row %q", got)
	}
}

func TestTabBar_Draw_Truncates(t *testing.T) {
	tb := widgets.NewTabBar([]string{strings.Repeat("x", 30), "other"})
	ctx := testDrawContext(10, 1)

	s, err := tb.Draw(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rowText(s, 0)) > 10 {
		t.Errorf("expected row to fit width 10, got %q", rowText(s, 0))
	}
}
