package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	db "github.com/TechXTT/webui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLPool_Query(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`select \* from foo`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "TechXT").
			AddRow(2, "webui"))

	pool := NewSQLPool(mockDB, 1, false)
	res, err := db.New(pool).Query(context.Background(), "select * from foo")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, res.Columns)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "TechXT", res.Rows[0][1])
	assert.Equal(t, 0, pool.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPool_QueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	cause := errors.New(`pq: relation "bad_table" does not exist`)
	mock.ExpectQuery(`select \* from bad_table`).WillReturnError(cause)

	pool := NewSQLPool(mockDB, 1, false)
	_, err = db.New(pool).Query(context.Background(), "select * from bad_table")

	var qe *db.QueryError
	require.ErrorAs(t, err, &qe)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, pool.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())

	// the connection went back, so the next lease does not block
	mock.ExpectQuery(`select 1`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	_, err = db.New(pool).Query(context.Background(), "select 1")
	require.NoError(t, err)
}

func TestSQLPool_FailFast(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	pool := NewSQLPool(mockDB, 1, true)
	d := db.New(pool)

	held, err := d.GetClient(context.Background())
	require.NoError(t, err)

	_, err = d.Query(context.Background(), "select * from foo")
	assert.ErrorIs(t, err, db.ErrPoolExhausted)

	held.Release()
	held.Release()
	assert.Equal(t, 0, pool.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPool_WaitHonoursContext(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	pool := NewSQLPool(mockDB, 1, false)
	held, err := db.New(pool).GetClient(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = db.New(pool).Query(ctx, "select 1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLPool_Unavailable(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, mockDB.Close())

	pool := NewSQLPool(mockDB, 0, false)
	_, err = db.New(pool).Query(context.Background(), "select 1")
	assert.ErrorIs(t, err, db.ErrPoolUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
