package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/deevus/pgrepl-tui/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lags, LSNs and timestamps are cast to text so rows look the same as the
// dashboard API's JSON.
const (
	statsQuery = `SELECT pid, usename, application_name,
	client_addr::text AS client_addr, state,
	sent_lsn::text AS sent_lsn, write_lsn::text AS write_lsn,
	flush_lsn::text AS flush_lsn, replay_lsn::text AS replay_lsn,
	write_lag::text AS write_lag, flush_lag::text AS flush_lag,
	replay_lag::text AS replay_lag, sync_state,
	reply_time::text AS reply_time
FROM pg_catalog.pg_stat_replication
ORDER BY pid`

	slotsQuery = `SELECT active_pid, slot_name, slot_type, plugin, database,
	active, restart_lsn::text AS restart_lsn,
	confirmed_flush_lsn::text AS confirmed_flush_lsn
FROM pg_catalog.pg_replication_slots
ORDER BY slot_name`
)

// PGSourceParams holds configuration for creating a PGSource.
type PGSourceParams struct {
	DSN     string
	Timeout time.Duration
	Dialer  *SSHDialer
	Logger  *logger.Logger
}

// PGSource reads replication views straight from PostgreSQL.
type PGSource struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *logger.Logger
}

// NewPGSource opens a small connection pool for the given DSN. The pool
// connects lazily; the first Fetch surfaces connection errors.
func NewPGSource(ctx context.Context, p PGSourceParams) (*PGSource, error) {
	cfg, err := pgxpool.ParseConfig(p.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 2
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute
	if p.Timeout > 0 {
		cfg.ConnConfig.ConnectTimeout = p.Timeout
	}
	if p.Dialer != nil {
		cfg.ConnConfig.DialFunc = p.Dialer.DialContext
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &PGSource{pool: pool, timeout: p.Timeout, logger: log.WithComponent("pg-source")}, nil
}

// Fetch runs the catalog query backing the endpoint. The server id only
// labels the request; the pool is already bound to one server.
func (s *PGSource) Fetch(ctx context.Context, ep Endpoint, node NodeContext) ([]Row, error) {
	if err := node.Validate(); err != nil {
		return nil, err
	}
	query, err := queryFor(ep)
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug().Str("endpoint", string(ep)).Int("sid", node.ServerID).Msg("querying catalog")

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep, err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// Close releases the pool.
func (s *PGSource) Close() error {
	s.pool.Close()
	return nil
}

func queryFor(ep Endpoint) (string, error) {
	switch ep {
	case EndpointStats:
		return statsQuery, nil
	case EndpointSlots:
		return slotsQuery, nil
	default:
		return "", fmt.Errorf("unknown endpoint %q", ep)
	}
}
