package db

import (
	"context"
	"fmt"
	"time"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("db")

// Conn is a single live database session handed out by a Pool.
type Conn interface {
	Query(ctx context.Context, statement string, args ...any) (*Result, error)
}

// ReleaseFunc returns a leased connection to its pool. It must not panic.
type ReleaseFunc func()

// Pool hands out connections. Acquire blocks until a connection is available,
// the pool gives up, or ctx is done.
type Pool interface {
	Acquire(ctx context.Context) (Conn, ReleaseFunc, error)
}

// DB runs scoped queries against a Pool
type DB struct {
	pool Pool
	ins  *instruments
}

// New wraps pool. Connection parameters belong to whatever built the pool.
func New(pool Pool, opts ...Option) *DB {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &DB{pool: pool, ins: newInstruments(o.meterProvider)}
}

// GetClient leases one connection from the pool. The caller owns the lease
// and must call Release on it.
func (d *DB) GetClient(ctx context.Context) (*Lease, error) {
	if d == nil || d.pool == nil {
		return nil, ErrNilPool
	}
	conn, release, err := d.pool.Acquire(ctx)
	if err != nil {
		log.Warningf("acquire connection: %v", err)
		return nil, err
	}
	if conn == nil {
		if release != nil {
			release()
		}
		return nil, fmt.Errorf("%w: pool returned no connection", ErrPoolUnavailable)
	}
	d.ins.leaseAcquired(ctx)
	return &Lease{
		Conn:      conn,
		release:   release,
		onRelease: func() { d.ins.leaseReleased(ctx) },
	}, nil
}

// Query leases a connection, runs statement on it and returns the
// connection to the pool before handing back the rows or the error.
func (d *DB) Query(ctx context.Context, statement string, args ...any) (*Result, error) {
	lease, err := d.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	start := time.Now()
	res, err := lease.Conn.Query(ctx, statement, args...)
	d.ins.queryDone(ctx, time.Since(start), err)
	if err != nil {
		log.Errorf("query %q: %v", statement, err)
		return nil, &QueryError{Statement: statement, Err: err}
	}
	if res == nil {
		res = &Result{}
	}
	log.Debugf("query %q returned %d rows", statement, res.Len())
	return res, nil
}

// Select runs statement and decodes the rows into dest, a pointer to a slice
// of structs.
func (d *DB) Select(ctx context.Context, dest any, statement string, args ...any) error {
	res, err := d.Query(ctx, statement, args...)
	if err != nil {
		return err
	}
	return res.Scan(dest)
}
