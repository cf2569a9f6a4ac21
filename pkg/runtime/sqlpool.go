package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	db "github.com/TechXTT/webui"
)

// SQLPool leases dedicated connections out of a *sql.DB.
type SQLPool struct {
	db   *sql.DB
	gate *gate
}

var _ Pool = (*SQLPool)(nil)

// NewSQLPool wraps conn. A positive maxConns also caps conn's open
// connections.
func NewSQLPool(conn *sql.DB, maxConns int, failFast bool) *SQLPool {
	if maxConns > 0 {
		conn.SetMaxOpenConns(maxConns)
	}
	return &SQLPool{db: conn, gate: newGate(maxConns, failFast)}
}

func (p *SQLPool) Acquire(ctx context.Context) (db.Conn, db.ReleaseFunc, error) {
	if err := p.gate.enter(ctx); err != nil {
		return nil, nil, err
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.gate.leave()
		return nil, nil, fmt.Errorf("%w: %w", db.ErrPoolUnavailable, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
				log.Warningf("release connection: %v", err)
			}
			p.gate.leave()
		})
	}
	return &sqlConn{conn: conn}, release, nil
}

// Stats reports database/sql's view of the pool.
func (p *SQLPool) Stats() sql.DBStats {
	return p.db.Stats()
}

// DB exposes the underlying handle for migrations.
func (p *SQLPool) DB() *sql.DB {
	return p.db
}

func (p *SQLPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLPool) Close() error {
	return p.db.Close()
}

func (p *SQLPool) Driver() string {
	return DriverPostgres
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, statement string, args ...any) (*db.Result, error) {
	rows, err := c.conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	res := &db.Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.Rows = append(res.Rows, db.Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}
