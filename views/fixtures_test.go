package views_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/pgrepl-tui/replication"
	"github.com/deevus/pgrepl-tui/views"
)

// testDrawContext treats every rune as one cell wide.
func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

var testNode = replication.NodeContext{ServerID: 1, ServerName: "primary"}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func statsFixture() []replication.Row {
	return []replication.Row{{
		"pid":         101,
		"client_addr": "10.0.0.5",
		"state":       "streaming",
		"write_lag":   "00:00:00.001",
		"flush_lag":   "00:00:00.002",
		"replay_lag":  "00:00:00.003",
		"reply_time":  "2024-01-01T00:00:00Z",
	}}
}

func slotsFixture() []replication.Row {
	return []replication.Row{{"active_pid": 55, "slot_name": "replica_1", "active": true}}
}

func fixtureSource() *replication.MockSource {
	return &replication.MockSource{
		FetchFunc: func(ctx context.Context, ep replication.Endpoint, node replication.NodeContext) ([]replication.Row, error) {
			switch ep {
			case replication.EndpointStats:
				return statsFixture(), nil
			case replication.EndpointSlots:
				return slotsFixture(), nil
			}
			return nil, errors.New("unexpected endpoint")
		},
	}
}

func newView(src replication.Source, n views.Notifier) *views.ReplicationView {
	return views.NewReplicationView(views.ReplicationViewParams{
		Source:   src,
		Notifier: n,
		Node:     testNode,
		Now:      func() time.Time { return time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC) },
	})
}

// collectEvents returns a PostEvent func that forwards DatasetFetched events
// to a buffered channel instead of applying them.
func collectEvents() (func(vaxis.Event), chan views.DatasetFetched) {
	ch := make(chan views.DatasetFetched, 16)
	return func(ev vaxis.Event) {
		if df, ok := ev.(views.DatasetFetched); ok {
			ch <- df
		}
	}, ch
}

func waitEvent(t *testing.T, ch chan views.DatasetFetched) views.DatasetFetched {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for DatasetFetched")
	}
	return views.DatasetFetched{}
}
