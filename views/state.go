package views

import "github.com/deevus/pgrepl-tui/replication"

// DatasetFetched is a custom vaxis event posted when a background fetch
// completes. It is sent from the fetch goroutine via PostEvent so the result
// is applied on the UI event loop.
type DatasetFetched struct {
	Server   string
	Endpoint replication.Endpoint
	Seq      uint64
	Rows     []replication.Row
	Err      error
}
