package replication_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/deevus/pgrepl-tui/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder(t *testing.T) {
	rows := replication.Placeholder()
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0])
}

func TestEndpoint_Title(t *testing.T) {
	assert.Equal(t, "Replication Stats", replication.EndpointStats.Title())
	assert.Equal(t, "Replication Slots", replication.EndpointSlots.Title())
	assert.Equal(t, "other", replication.Endpoint("other").Title())
}

func TestNodeContext_Validate(t *testing.T) {
	assert.NoError(t, replication.NodeContext{ServerID: 1}.Validate())
	assert.Error(t, replication.NodeContext{ServerID: 0}.Validate())
	assert.Error(t, replication.NodeContext{ServerID: -2}.Validate())
}

func TestMockSource_Default(t *testing.T) {
	m := &replication.MockSource{}
	rows, err := m.Fetch(context.Background(), replication.EndpointStats, primary)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseError(t *testing.T) {
	assert.Equal(t, "", replication.ParseError(nil))
	assert.Equal(t, "request timed out",
		replication.ParseError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, "request cancelled", replication.ParseError(context.Canceled))
	assert.Equal(t, "boom", replication.ParseError(errors.New("boom")))

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.Contains(t, replication.ParseError(opErr), "unable to reach server")

	apiErr := &replication.APIError{Endpoint: replication.EndpointSlots, StatusCode: 403, Message: "forbidden"}
	assert.Equal(t, "forbidden", replication.ParseError(fmt.Errorf("x: %w", apiErr)))
	assert.Equal(t, "replication_slots: status 403: forbidden", apiErr.Error())
}
