package runtime

import (
	"context"
	"fmt"
	"math"
	"sync"

	db "github.com/TechXTT/webui"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool leases connections from a pgxpool.Pool.
type PgxPool struct {
	pool *pgxpool.Pool
	gate *gate
}

var _ Pool = (*PgxPool)(nil)

// NewPgxPool parses dsn and builds the pool without dialing.
func NewPgxPool(ctx context.Context, dsn string, maxConns int, failFast bool) (*PgxPool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(min(maxConns, math.MaxInt32))
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &PgxPool{pool: pool, gate: newGate(maxConns, failFast)}, nil
}

func (p *PgxPool) Acquire(ctx context.Context) (db.Conn, db.ReleaseFunc, error) {
	if err := p.gate.enter(ctx); err != nil {
		return nil, nil, err
	}
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.gate.leave()
		return nil, nil, fmt.Errorf("%w: %w", db.ErrPoolUnavailable, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			conn.Release()
			p.gate.leave()
		})
	}
	return &pgxConn{conn: conn}, release, nil
}

// Stat reports pgxpool's counters.
func (p *PgxPool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

func (p *PgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PgxPool) Close() error {
	p.pool.Close()
	return nil
}

func (p *PgxPool) Driver() string {
	return DriverPgx
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Query(ctx context.Context, statement string, args ...any) (*db.Result, error) {
	rows, err := c.conn.Query(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &db.Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		res.Rows = append(res.Rows, db.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}
