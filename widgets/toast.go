package widgets

import (
	"sync"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
)

// ToastLevel selects the toast color.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastError
)

// ToastExpired is posted when a toast's display time has elapsed so the UI
// can redraw without it.
type ToastExpired struct {
	ID uint64
}

// Toast is a one-line transient notification. It is safe to call Error and
// Info from any goroutine.
type Toast struct {
	ttl       time.Duration
	postEvent func(vaxis.Event)
	now       func() time.Time

	mu      sync.Mutex
	id      uint64
	message string
	level   ToastLevel
	expires time.Time
}

// NewToast creates a Toast that shows each message for ttl.
func NewToast(ttl time.Duration) *Toast {
	return &Toast{ttl: ttl, now: time.Now}
}

// SetPostEvent sets the function used to schedule ToastExpired events.
func (t *Toast) SetPostEvent(fn func(vaxis.Event)) {
	t.mu.Lock()
	t.postEvent = fn
	t.mu.Unlock()
}

// Error shows an error message.
func (t *Toast) Error(msg string) {
	t.show(msg, ToastError)
}

// Info shows an informational message.
func (t *Toast) Info(msg string) {
	t.show(msg, ToastInfo)
}

func (t *Toast) show(msg string, level ToastLevel) {
	t.mu.Lock()
	t.id++
	id := t.id
	t.message = msg
	t.level = level
	t.expires = t.now().Add(t.ttl)
	post := t.postEvent
	t.mu.Unlock()

	if post != nil && t.ttl > 0 {
		time.AfterFunc(t.ttl, func() { post(ToastExpired{ID: id}) })
	}
}

// Message returns the current message and level, or "" once expired.
func (t *Toast) Message() (string, ToastLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.message == "" || !t.now().Before(t.expires) {
		return "", ToastInfo
	}
	return t.message, t.level
}

// Visible reports whether a message is currently shown.
func (t *Toast) Visible() bool {
	msg, _ := t.Message()
	return msg != ""
}

// Dismiss clears the current message.
func (t *Toast) Dismiss() {
	t.mu.Lock()
	t.message = ""
	t.mu.Unlock()
}

// Draw renders the message on a single row, or an empty row.
func (t *Toast) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, 1, t)
	msg, level := t.Message()
	if msg == "" {
		return s, nil
	}

	style := vaxis.Style{Foreground: vaxis.IndexColor(6)} // cyan
	prefix := " ℹ "
	if level == ToastError {
		style = vaxis.Style{Foreground: vaxis.IndexColor(15), Background: vaxis.IndexColor(1)} // white on red
		prefix = " ✗ "
	}
	fillRow(&s, 0, ctx.Max.Width, style)
	writeText(&s, 0, 0, int(ctx.Max.Width), prefix+msg, style, false)
	return s, nil
}
