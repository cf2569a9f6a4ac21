package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	db "github.com/TechXTT/webui"
	"github.com/TechXTT/webui/pkg/config"
	_ "github.com/lib/pq"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("runtime")

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Pool is a db.Pool backed by a real driver.
type Pool interface {
	db.Pool
	Ping(ctx context.Context) error
	Close() error
	Driver() string
}

// NormalizeDSN disables SSL on postgres:// URLs that do not choose a mode.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("DSN is empty")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if !strings.Contains(dsn, "sslmode=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn = dsn + sep + "sslmode=disable"
		}
	}
	return dsn, nil
}

// Connect builds the pool selected by cfg.Driver. Neither backend dials
// until the first lease is requested.
func Connect(ctx context.Context, dsn string, cfg config.Database) (Pool, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Driver) {
	case "", DriverPostgres:
		conn, err := OpenSQL(dsn)
		if err != nil {
			return nil, err
		}
		log.Infof("using database/sql pool (max %d, fail fast %t)", cfg.MaxConns, cfg.FailFast)
		return NewSQLPool(conn, cfg.MaxConns, cfg.FailFast), nil
	case DriverPgx:
		log.Infof("using pgx pool (max %d, fail fast %t)", cfg.MaxConns, cfg.FailFast)
		return NewPgxPool(ctx, dsn, cfg.MaxConns, cfg.FailFast)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenSQL opens a lib/pq handle on dsn. Migrations run through it whatever
// pool backend serves queries.
func OpenSQL(dsn string) (*sql.DB, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return conn, nil
}
