package views

import (
	"time"

	"github.com/deevus/pgrepl-tui/widgets"
)

// pxPerCell converts the dashboard's pixel width hints to terminal cells.
const pxPerCell = 7

func cells(px int) int {
	return (px + pxPerCell - 1) / pxPerCell
}

// StatsColumns returns the column descriptors for the replication stats
// table. The slice is built once per panel and never modified.
func StatsColumns(now func() time.Time) []widgets.Column {
	lag := func(key, header string) widgets.Column {
		return widgets.Column{
			Key: key, Header: header,
			Width: cells(100), MinWidth: cells(50), AlignRight: true,
			Sortable: true, Filterable: true, Resizable: true,
		}
	}
	return []widgets.Column{
		{Key: "pid", Header: "PID", Width: cells(40), MinWidth: cells(40), AlignRight: true,
			Sortable: true, Filterable: true, Resizable: true},
		{Key: "client_addr", Header: "Client Addr", Width: cells(100), MinWidth: cells(50),
			Sortable: true, Filterable: true, Resizable: true},
		{Key: "state", Header: "State", Width: cells(100), MinWidth: cells(50),
			Sortable: true, Filterable: true, Resizable: true},
		lag("write_lag", "Write Lag"),
		lag("flush_lag", "Flush Lag"),
		lag("replay_lag", "Replay Lag"),
		{Key: "reply_time", Header: "Reply Time", Width: cells(100), MinWidth: cells(50),
			Sortable: true, Filterable: true, Resizable: true, Render: widgets.TimeAgoCell(now)},
	}
}

// SlotsColumns returns the column descriptors for the replication slots
// table. Active renders as a toggle.
func SlotsColumns() []widgets.Column {
	return []widgets.Column{
		{Key: "active_pid", Header: "Active PID", Width: cells(50), MinWidth: len("Active PID"), AlignRight: true,
			Sortable: true, Filterable: true, Resizable: true},
		{Key: "slot_name", Header: "Slot Name", Width: cells(200), MinWidth: cells(50),
			Sortable: true, Filterable: true, Resizable: true},
		{Key: "active", Header: "Active", Width: cells(50), MinWidth: cells(50),
			Sortable: true, Filterable: true, Resizable: true, Render: widgets.ToggleCell},
	}
}
