package widgets_test

import (
	"testing"

	"github.com/deevus/pgrepl-tui/widgets"
)

func TestBarGauge_Draw(t *testing.T) {
	bg := &widgets.BarGauge{Label: "ACTIVE", Count: 2, Total: 4, BarWidth: 8}

	s, err := bg.Draw(testDrawContext(80, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Height != 1 {
		t.Errorf("expected height=1, got %d", s.Size.Height)
	}
	if got := rowText(s, 0); got != "ACTIVE [████░░░░] 2/4" {
		t.Errorf("unexpected gauge %q", got)
	}
}

func TestBarGauge_Draw_Empty(t *testing.T) {
	bg := &widgets.BarGauge{Label: "ACTIVE", BarWidth: 4}

	s, err := bg.Draw(testDrawContext(80, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); got != "ACTIVE [░░░░] 0/0" {
		t.Errorf("unexpected gauge %q", got)
	}
}

func TestBarGauge_Draw_ClampsCount(t *testing.T) {
	bg := &widgets.BarGauge{Label: "A", Count: 9, Total: 2, BarWidth: 2}

	s, err := bg.Draw(testDrawContext(80, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowText(s, 0); got != "A [██] 2/2" {
		t.Errorf("unexpected gauge %q", got)
	}
}

func TestBarGauge_Draw_Narrow(t *testing.T) {
	bg := &widgets.BarGauge{Label: "ACTIVE", Count: 1, Total: 3, BarWidth: 20}
	s, err := bg.Draw(testDrawContext(10, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Size.Width != 10 {
		t.Errorf("expected width=10, got %d", s.Size.Width)
	}
}
