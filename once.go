package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/deevus/pgrepl-tui/app"
	"github.com/deevus/pgrepl-tui/replication"
	"github.com/deevus/pgrepl-tui/views"
	"github.com/deevus/pgrepl-tui/widgets"
	"golang.org/x/sync/errgroup"
)

// snapshot is one fetched dataset for one server.
type snapshot struct {
	server   string
	endpoint replication.Endpoint
	rows     []replication.Row
}

// printOnce fetches every dataset of every server in parallel and writes
// them as plain text tables. Any failed fetch fails the whole run.
func printOnce(ctx context.Context, w io.Writer, servers []app.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]snapshot, len(servers)*len(replication.Endpoints))

	for i, srv := range servers {
		for j, ep := range replication.Endpoints {
			slot := i*len(replication.Endpoints) + j
			g.Go(func() error {
				fctx := gctx
				if srv.Timeout > 0 {
					var cancel context.CancelFunc
					fctx, cancel = context.WithTimeout(gctx, srv.Timeout)
					defer cancel()
				}
				rows, err := srv.Services.Replication.Fetch(fctx, ep, srv.Node)
				if err != nil {
					return fmt.Errorf("%s %s: %s", srv.Name, ep.Title(), replication.ParseError(err))
				}
				results[slot] = snapshot{server: srv.Name, endpoint: ep, rows: rows}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, snap := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeTable(w, snap, columnsFor(snap.endpoint)); err != nil {
			return err
		}
	}
	return nil
}

func columnsFor(ep replication.Endpoint) []widgets.Column {
	if ep == replication.EndpointSlots {
		return views.SlotsColumns()
	}
	return views.StatsColumns(time.Now)
}

func writeTable(w io.Writer, snap snapshot, cols []widgets.Column) error {
	fmt.Fprintf(w, "== %s: %s (%d rows)\n", snap.server, snap.endpoint.Title(), len(snap.rows))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range snap.rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			render := c.Render
			if render == nil {
				render = widgets.TextCell
			}
			cells[i] = render(row[c.Key]).Text
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
