package views

import (
	"sync"
	"time"

	"github.com/deevus/pgrepl-tui/replication"
)

// Dataset holds the rows of one table and the bookkeeping that decides which
// fetch completion may replace them.
//
// Every fetch takes a sequence number from Begin. Apply accepts rows only
// from the most recently issued sequence, so a slow response to an older
// request can never overwrite a newer one.
type Dataset struct {
	endpoint replication.Endpoint

	mu       sync.Mutex
	rows     []replication.Row
	issued   uint64
	inflight map[uint64]struct{}
	loaded   bool
	loadedAt time.Time
}

// NewDataset creates a Dataset holding the placeholder row.
func NewDataset(ep replication.Endpoint) *Dataset {
	return &Dataset{
		endpoint: ep,
		rows:     replication.Placeholder(),
		inflight: make(map[uint64]struct{}),
	}
}

// Endpoint returns the dataset's endpoint.
func (d *Dataset) Endpoint() replication.Endpoint {
	return d.endpoint
}

// Begin issues the next sequence number and marks it in flight.
func (d *Dataset) Begin() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.issued++
	d.inflight[d.issued] = struct{}{}
	return d.issued
}

// Apply replaces the rows if seq is the latest issued sequence. It reports
// whether the rows were applied.
func (d *Dataset) Apply(seq uint64, rows []replication.Row) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, seq)
	if seq != d.issued {
		return false
	}
	if rows == nil {
		rows = []replication.Row{}
	}
	d.rows = rows
	d.loaded = true
	d.loadedAt = time.Now()
	return true
}

// Fail ends a sequence without touching the rows. It reports whether seq was
// the latest issued sequence, i.e. whether the failure is worth reporting.
func (d *Dataset) Fail(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, seq)
	return seq == d.issued
}

// Rows returns the current rows. The slice is shared; callers must not
// modify it.
func (d *Dataset) Rows() []replication.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rows
}

// Loaded reports whether any fetch has succeeded.
func (d *Dataset) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// LoadedAt returns the time of the last successful fetch.
func (d *Dataset) LoadedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadedAt
}

// Pending returns the number of fetches still in flight.
func (d *Dataset) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
