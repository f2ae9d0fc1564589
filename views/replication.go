package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
	"github.com/deevus/pgrepl-tui/internal/logger"
	"github.com/deevus/pgrepl-tui/replication"
	"github.com/deevus/pgrepl-tui/widgets"
	"github.com/dustin/go-humanize"
)

// Notifier surfaces user-visible messages.
type Notifier interface {
	Error(msg string)
}

// ReplicationViewParams holds configuration for creating a ReplicationView.
type ReplicationViewParams struct {
	Source    replication.Source
	Notifier  Notifier
	Node      replication.NodeContext
	Logger    *logger.Logger
	PostEvent func(vaxis.Event)
	Timeout   time.Duration

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// section pairs a dataset with the table that displays it.
type section struct {
	data  *Dataset
	table *widgets.Table
	key   rune // manual refresh key
}

// ReplicationView is the replication panel for one server: a stats table and
// a slots table, each refreshed independently.
//
// Data is fetched when the panel becomes visible and when the user asks for
// it; there is no polling. Fetches run in goroutines and their results come
// back through PostEvent as DatasetFetched, which HandleFetched applies.
type ReplicationView struct {
	source    replication.Source
	notifier  Notifier
	node      replication.NodeContext
	logger    *logger.Logger
	postEvent func(vaxis.Event)
	timeout   time.Duration
	now       func() time.Time

	sections [2]*section
	focus    int
	visible  bool

	// Worst replay lag per applied stats refresh (protected by mu)
	mu       sync.Mutex
	lagTrend *widgets.Sparkline
}

// NewReplicationView creates a ReplicationView bound to one server.
func NewReplicationView(p ReplicationViewParams) *ReplicationView {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	rv := &ReplicationView{
		source:    p.Source,
		notifier:  p.Notifier,
		node:      p.Node,
		logger:    log.WithComponent("replication-view").WithServer(p.Node.ServerName, p.Node.ServerID),
		postEvent: p.PostEvent,
		timeout:   p.Timeout,
		now:       now,
		lagTrend:  widgets.NewSparkline(60),
	}

	statsTable := widgets.NewTable(StatsColumns(now))
	statsTable.Expandable = true
	slotsTable := widgets.NewTable(SlotsColumns())
	slotsTable.Expandable = true

	rv.sections[0] = &section{data: NewDataset(replication.EndpointStats), table: statsTable, key: 's'}
	rv.sections[1] = &section{data: NewDataset(replication.EndpointSlots), table: slotsTable, key: 'l'}
	rv.sections[0].table.Focused = true
	return rv
}

// SetPostEvent sets the function used to deliver fetch results to the UI
// event loop. Without it, results are applied on the fetch goroutine.
func (rv *ReplicationView) SetPostEvent(fn func(vaxis.Event)) {
	rv.postEvent = fn
}

// Node returns the server context the panel is bound to.
func (rv *ReplicationView) Node() replication.NodeContext {
	return rv.node
}

// Stats returns the replication stats dataset.
func (rv *ReplicationView) Stats() *Dataset {
	return rv.sections[0].data
}

// Slots returns the replication slots dataset.
func (rv *ReplicationView) Slots() *Dataset {
	return rv.sections[1].data
}

func (rv *ReplicationView) section(ep replication.Endpoint) *section {
	for _, s := range rv.sections {
		if s.data.Endpoint() == ep {
			return s
		}
	}
	return nil
}

// Visible reports whether the panel is the one on screen.
func (rv *ReplicationView) Visible() bool {
	return rv.visible
}

// SetVisible records a visibility change. Becoming visible refreshes both
// datasets, whether or not they already hold data.
func (rv *ReplicationView) SetVisible(visible bool) {
	wasVisible := rv.visible
	rv.visible = visible
	if visible && !wasVisible {
		rv.RefreshAll()
	}
}

// RefreshAll starts a refresh of every dataset.
func (rv *ReplicationView) RefreshAll() {
	for _, s := range rv.sections {
		rv.RefreshAsync(s.data.Endpoint())
	}
}

// RefreshAsync starts a background fetch of one dataset and returns
// immediately.
func (rv *ReplicationView) RefreshAsync(ep replication.Endpoint) {
	s := rv.section(ep)
	if s == nil {
		return
	}
	seq := s.data.Begin()
	go func() {
		ev := rv.fetch(context.Background(), ep, seq)
		if rv.postEvent != nil {
			rv.postEvent(ev)
			return
		}
		rv.HandleFetched(ev)
	}()
}

// Refresh fetches one dataset and applies the result before returning.
// Failures have already been logged and notified when the error is returned.
func (rv *ReplicationView) Refresh(ctx context.Context, ep replication.Endpoint) error {
	s := rv.section(ep)
	if s == nil {
		return fmt.Errorf("unknown endpoint %q", ep)
	}
	ev := rv.fetch(ctx, ep, s.data.Begin())
	rv.HandleFetched(ev)
	return ev.Err
}

func (rv *ReplicationView) fetch(ctx context.Context, ep replication.Endpoint, seq uint64) DatasetFetched {
	if rv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rv.timeout)
		defer cancel()
	}
	ev := DatasetFetched{Server: rv.node.ServerName, Endpoint: ep, Seq: seq}
	if rv.source == nil {
		ev.Err = fmt.Errorf("no data source configured")
		return ev
	}
	ev.Rows, ev.Err = rv.source.Fetch(ctx, ep, rv.node)
	return ev
}

// HandleFetched applies a completed fetch. Rows replace the dataset only if
// the fetch is the latest one issued for it; failures leave the rows as they
// were and raise one notification. It reports whether rows were applied.
func (rv *ReplicationView) HandleFetched(ev DatasetFetched) bool {
	s := rv.section(ev.Endpoint)
	if s == nil {
		return false
	}

	if ev.Err != nil {
		current := s.data.Fail(ev.Seq)
		rv.logger.Error().
			Err(ev.Err).
			Str("endpoint", string(ev.Endpoint)).
			Uint64("seq", ev.Seq).
			Bool("superseded", !current).
			Msg("fetch failed")
		if current && rv.notifier != nil {
			rv.notifier.Error(fmt.Sprintf("%s · %s: %s",
				rv.node.ServerName, ev.Endpoint.Title(), replication.ParseError(ev.Err)))
		}
		return false
	}

	if !s.data.Apply(ev.Seq, ev.Rows) {
		rv.logger.Debug().
			Str("endpoint", string(ev.Endpoint)).
			Uint64("seq", ev.Seq).
			Msg("discarding superseded response")
		return false
	}

	rv.logger.Debug().
		Str("endpoint", string(ev.Endpoint)).
		Uint64("seq", ev.Seq).
		Int("rows", len(ev.Rows)).
		Msg("dataset refreshed")

	if ev.Endpoint == replication.EndpointStats {
		if lag, ok := maxLag(ev.Rows, "replay_lag"); ok {
			rv.mu.Lock()
			rv.lagTrend.Push(lag)
			rv.mu.Unlock()
		}
	}
	return true
}

// Focused returns the endpoint of the section receiving navigation keys.
func (rv *ReplicationView) Focused() replication.Endpoint {
	return rv.sections[rv.focus].data.Endpoint()
}

func (rv *ReplicationView) cycleFocus() {
	rv.sections[rv.focus].table.Focused = false
	rv.focus = (rv.focus + 1) % len(rv.sections)
	rv.sections[rv.focus].table.Focused = true
}

// HandleEvent handles refresh keys and table navigation.
func (rv *ReplicationView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	key, ok := ev.(vaxis.Key)
	if !ok {
		return nil, nil
	}
	focused := rv.sections[rv.focus]

	switch {
	case key.Matches('s'):
		rv.RefreshAsync(replication.EndpointStats)
	case key.Matches('l'):
		rv.RefreshAsync(replication.EndpointSlots)
	case key.Matches('r'):
		rv.RefreshAsync(focused.data.Endpoint())
	case key.Matches('f'):
		rv.cycleFocus()
	case key.Matches('j'), key.Matches(vaxis.KeyDown):
		focused.table.MoveCursor(1)
	case key.Matches('k'), key.Matches(vaxis.KeyUp):
		focused.table.MoveCursor(-1)
	case key.Matches(vaxis.KeyEnter):
		focused.table.ToggleExpand()
	case key.Matches('o'):
		focused.table.CycleSort()
	case key.Matches('O'):
		focused.table.ReverseSort()
	default:
		return nil, nil
	}
	return vxfw.ConsumeAndRedraw(), nil
}

// Draw renders both sections stacked, splitting the height evenly.
func (rv *ReplicationView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	if err := rv.node.Validate(); err != nil {
		return drawMessage(ctx, rv, "No server selected")
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, rv)
	top := ctx.Max.Height / 2
	heights := [2]uint16{top, ctx.Max.Height - top}

	row := 0
	for i, sec := range rv.sections {
		h := heights[i]
		if h == 0 {
			continue
		}
		surf, err := rv.drawSection(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: h}), sec, i == rv.focus)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, row, surf)
		row += int(h)
	}
	return s, nil
}

// drawSection renders a title line, a summary line and the table.
func (rv *ReplicationView) drawSection(ctx vxfw.DrawContext, sec *section, focused bool) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, rv)
	row := 0

	titleStyle := vaxis.Style{Attribute: vaxis.AttrBold}
	marker := "  "
	if focused {
		marker = "▶ "
		titleStyle.Foreground = vaxis.IndexColor(6) // cyan
	}
	status := "not loaded"
	if sec.data.Loaded() {
		status = "refreshed " + humanize.RelTime(sec.data.LoadedAt(), rv.now(), "ago", "from now")
	}
	segments := []vaxis.Segment{
		{Text: marker + sec.data.Endpoint().Title(), Style: titleStyle},
		{Text: fmt.Sprintf("  [%c] refresh", sec.key), Style: vaxis.Style{Attribute: vaxis.AttrDim}},
		{Text: "  " + status, Style: vaxis.Style{Attribute: vaxis.AttrDim}},
	}
	if sec.data.Pending() > 0 {
		segments = append(segments, vaxis.Segment{
			Text: "  refreshing…", Style: vaxis.Style{Foreground: vaxis.IndexColor(3)}, // yellow
		})
	}
	title := richtext.New(segments)
	titleSurf, err := title.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, row, titleSurf)
	row++

	rows := sec.data.Rows()
	if row < int(ctx.Max.Height) {
		summary, err := rv.drawSummary(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}), sec.data.Endpoint(), rows)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, row, summary)
		row++
	}

	remaining := int(ctx.Max.Height) - row
	if remaining > 0 {
		sec.table.SetRows(rows)
		tableSurf, err := sec.table.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: uint16(remaining)}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, row, tableSurf)
	}
	return s, nil
}

// drawSummary renders the per-section summary: standby count and replay lag
// trend for stats, active slot gauge for slots.
func (rv *ReplicationView) drawSummary(ctx vxfw.DrawContext, ep replication.Endpoint, rows []replication.Row) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, rv)

	switch ep {
	case replication.EndpointSlots:
		active, total := countActive(rows)
		gauge := &widgets.BarGauge{Label: "  ACTIVE", Count: active, Total: total, BarWidth: 20}
		gaugeSurf, err := gauge.Draw(ctx)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 0, gaugeSurf)

	case replication.EndpointStats:
		standbys := 0
		for _, r := range rows {
			if len(r) > 0 {
				standbys++
			}
		}
		rv.mu.Lock()
		latest := rv.lagTrend.Latest()
		samples := rv.lagTrend.Count()
		rv.mu.Unlock()

		text := fmt.Sprintf("  %d standby", standbys)
		if standbys != 1 {
			text += "s"
		}
		if samples > 0 {
			text += fmt.Sprintf("  max replay lag %s  ", latest)
		}
		label := richtext.New([]vaxis.Segment{{Text: text, Style: vaxis.Style{Attribute: vaxis.AttrDim}}})
		labelSurf, err := label.Draw(ctx)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 0, labelSurf)

		sparkCol := displayWidth(ctx, text)
		if samples > 0 && sparkCol < int(ctx.Max.Width) {
			rv.mu.Lock()
			sparkSurf, err := rv.lagTrend.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width - uint16(sparkCol), Height: 1}))
			rv.mu.Unlock()
			if err != nil {
				return vxfw.Surface{}, err
			}
			s.AddChild(sparkCol, 0, sparkSurf)
		}
	}
	return s, nil
}

// drawMessage renders one dim line in place of the sections.
func drawMessage(ctx vxfw.DrawContext, owner vxfw.Widget, msg string) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, owner)
	label := richtext.New([]vaxis.Segment{
		{Text: msg, Style: vaxis.Style{Attribute: vaxis.AttrDim}},
	})
	labelSurf, err := label.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, labelSurf)
	return s, nil
}

// displayWidth returns the number of cells text occupies.
func displayWidth(ctx vxfw.DrawContext, text string) int {
	w := 0
	for _, ch := range ctx.Characters(text) {
		w += ch.Width
	}
	return w
}
