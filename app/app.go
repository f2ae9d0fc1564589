package app

import (
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
	"github.com/deevus/pgrepl-tui/internal"
	"github.com/deevus/pgrepl-tui/internal/logger"
	"github.com/deevus/pgrepl-tui/replication"
	"github.com/deevus/pgrepl-tui/views"
	"github.com/deevus/pgrepl-tui/widgets"
)

const defaultToastTTL = 5 * time.Second

// Server is one configured server shown as a tab.
type Server struct {
	Name     string
	Node     replication.NodeContext
	Services *internal.Services
	Timeout  time.Duration
}

// Params holds configuration for creating an App.
type Params struct {
	Servers  []Server
	Logger   *logger.Logger
	ToastTTL time.Duration
}

// App is the root vxfw widget for pgrepl-tui. Each server gets a tab; only
// the active tab's panel is visible.
type App struct {
	servers   []Server
	panels    []*views.ReplicationView
	tabBar    *widgets.TabBar
	toast     *widgets.Toast
	logger    *logger.Logger
	postEvent func(vaxis.Event)
	started   bool
}

// New creates the root App widget with one replication panel per server.
func New(p Params) *App {
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	ttl := p.ToastTTL
	if ttl == 0 {
		ttl = defaultToastTTL
	}

	a := &App{
		toast:  widgets.NewToast(ttl),
		logger: log.WithComponent("app"),
	}

	// Fetch results are routed back by server name, so the panel's node
	// carries the tab name.
	a.servers = make([]Server, len(p.Servers))
	labels := make([]string, len(p.Servers))
	for i, srv := range p.Servers {
		srv.Node.ServerName = srv.Name
		a.servers[i] = srv
		labels[i] = srv.Name
		var src replication.Source
		if srv.Services != nil {
			src = srv.Services.Replication
		}
		a.panels = append(a.panels, views.NewReplicationView(views.ReplicationViewParams{
			Source:   src,
			Notifier: a.toast,
			Node:     srv.Node,
			Logger:   log,
			Timeout:  srv.Timeout,
		}))
	}
	a.tabBar = widgets.NewTabBar(labels)
	return a
}

// SetPostEvent sets the function used to post events to the vaxis event loop.
// Must be called before Start.
func (a *App) SetPostEvent(fn func(vaxis.Event)) {
	a.postEvent = fn
	a.toast.SetPostEvent(fn)
	for _, p := range a.panels {
		p.SetPostEvent(fn)
	}
}

// Start makes the active panel visible, which fetches its datasets. It is
// called when the event loop delivers vxfw.Init.
func (a *App) Start() {
	if a.started {
		return
	}
	a.started = true
	if p := a.activePanel(); p != nil {
		p.SetVisible(true)
	}
}

// ActiveTab returns the current tab index.
func (a *App) ActiveTab() int {
	return a.tabBar.Active()
}

// SetTab switches to the given tab index. Once started, the previous panel
// is hidden and the new one shown.
func (a *App) SetTab(i int) {
	prev := a.tabBar.Active()
	a.tabBar.SetActive(i)
	a.switched(prev)
}

func (a *App) switched(prev int) {
	cur := a.tabBar.Active()
	if cur == prev || !a.started {
		return
	}
	a.logger.Debug().
		Str("from", a.servers[prev].Name).
		Str("to", a.servers[cur].Name).
		Msg("switching server")
	a.panels[prev].SetVisible(false)
	a.panels[cur].SetVisible(true)
}

// ServerName returns the active server profile name.
func (a *App) ServerName() string {
	if len(a.servers) == 0 {
		return ""
	}
	return a.servers[a.tabBar.Active()].Name
}

// Panel returns the replication panel for the named server, or nil.
func (a *App) Panel(name string) *views.ReplicationView {
	for i, srv := range a.servers {
		if srv.Name == name {
			return a.panels[i]
		}
	}
	return nil
}

// Toast returns the notification line.
func (a *App) Toast() *widgets.Toast {
	return a.toast
}

// Close releases every server's resources.
func (a *App) Close() error {
	var first error
	for _, srv := range a.servers {
		if err := srv.Services.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) activePanel() *views.ReplicationView {
	if len(a.panels) == 0 {
		return nil
	}
	return a.panels[a.tabBar.Active()]
}

// Draw renders the tab bar, the active panel and, when present, the toast.
func (a *App) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)
	if ctx.Max.Height == 0 {
		return s, nil
	}

	panel := a.activePanel()
	if panel == nil {
		label := richtext.New([]vaxis.Segment{
			{Text: "No servers configured", Style: vaxis.Style{Attribute: vaxis.AttrDim}},
		})
		labelSurf, err := label.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, 0, labelSurf)
		return s, nil
	}

	// Tab bar (1 row)
	tabCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1})
	tabSurf, err := a.tabBar.Draw(tabCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, tabSurf)

	// Toast (1 row at the bottom)
	viewHeight := ctx.Max.Height - 1
	if a.toast.Visible() && viewHeight > 0 {
		viewHeight--
		toastSurf, err := a.toast.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, int(ctx.Max.Height)-1, toastSurf)
	}

	// Active panel (remaining space)
	viewCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: viewHeight})
	viewSurf, err := panel.Draw(viewCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 1, viewSurf)

	return s, nil
}

// CaptureEvent handles global keybindings before views process them.
func (a *App) CaptureEvent(ev vaxis.Event) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case vaxis.Key:
		prev := a.tabBar.Active()
		switch {
		case ev.Matches('q'):
			return vxfw.QuitCmd{}, nil
		case ev.Matches(vaxis.KeyEsc):
			if !a.toast.Visible() {
				return nil, nil
			}
			a.toast.Dismiss()
			return vxfw.ConsumeAndRedraw(), nil
		case ev.Matches(vaxis.KeyTab):
			a.tabBar.Next()
		case ev.Matches(vaxis.KeyTab, vaxis.ModShift):
			a.tabBar.Prev()
		case ev.Keycode >= '1' && ev.Keycode <= '9' && ev.Matches(ev.Keycode):
			idx := int(ev.Keycode - '1')
			if idx >= a.tabBar.Len() {
				return nil, nil
			}
			a.tabBar.SetActive(idx)
		default:
			return nil, nil
		}
		a.switched(prev)
		return vxfw.ConsumeAndRedraw(), nil
	}
	return nil, nil
}

// HandleEvent starts fetching on Init, applies fetch results to the panel
// that issued them, and delegates everything else to the active panel.
func (a *App) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case vxfw.Init:
		a.Start()
		return vxfw.RedrawCmd{}, nil
	case views.DatasetFetched:
		p := a.Panel(ev.Server)
		if p == nil {
			a.logger.Warn().Str("server", ev.Server).Msg("fetch result for unknown server")
			return nil, nil
		}
		p.HandleFetched(ev)
		return vxfw.RedrawCmd{}, nil
	case widgets.ToastExpired:
		return vxfw.RedrawCmd{}, nil
	default:
		if p := a.activePanel(); p != nil {
			return p.HandleEvent(ev, phase)
		}
	}
	return nil, nil
}
