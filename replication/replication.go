// Package replication fetches PostgreSQL streaming-replication statistics
// and replication slot state for a server, either through a dashboard HTTP
// API or by querying the database directly.
package replication

import (
	"context"
	"fmt"
)

// Endpoint names one dataset exposed by the dashboard API.
type Endpoint string

const (
	EndpointStats Endpoint = "replication_stats"
	EndpointSlots Endpoint = "replication_slots"
)

// Endpoints lists every dataset in display order.
var Endpoints = []Endpoint{EndpointStats, EndpointSlots}

// Title returns the section heading for the endpoint.
func (e Endpoint) Title() string {
	switch e {
	case EndpointStats:
		return "Replication Stats"
	case EndpointSlots:
		return "Replication Slots"
	default:
		return string(e)
	}
}

// Row is one server-defined record. Keys and value types are whatever the
// server sent; rows are never reshaped on the way to the table.
type Row = map[string]any

// Placeholder returns the single empty row a dataset holds before its first
// successful fetch.
func Placeholder() []Row {
	return []Row{{}}
}

// NodeContext identifies the server a panel is bound to.
type NodeContext struct {
	ServerID   int
	ServerName string
}

// Validate reports whether the context can address a server.
func (n NodeContext) Validate() error {
	if n.ServerID <= 0 {
		return fmt.Errorf("invalid server id %d", n.ServerID)
	}
	return nil
}

// Source reads one dataset for one server.
type Source interface {
	Fetch(ctx context.Context, ep Endpoint, node NodeContext) ([]Row, error)
}

// MockSource is a Source whose behavior is supplied by FetchFunc.
type MockSource struct {
	FetchFunc func(ctx context.Context, ep Endpoint, node NodeContext) ([]Row, error)
}

// Fetch calls FetchFunc, or returns no rows when it is unset.
func (m *MockSource) Fetch(ctx context.Context, ep Endpoint, node NodeContext) ([]Row, error) {
	if m.FetchFunc == nil {
		return []Row{}, nil
	}
	return m.FetchFunc(ctx, ep, node)
}
