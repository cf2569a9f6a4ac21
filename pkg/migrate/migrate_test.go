package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, up, down string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".up.sql"), []byte(up), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".down.sql"), []byte(down), 0o644))
}

func TestUp_AppliesPendingMigrations(t *testing.T) {
	dir := t.TempDir()
	upSQL := "CREATE TABLE foo();"
	writeMigration(t, dir, "0001_foo", upSQL, "DROP TABLE foo;")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectBegin()
	mock.ExpectExec(fmt.Sprintf("^%s$", regexp.QuoteMeta(upSQL))).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mgr, err := NewManager(db, dir)
	require.NoError(t, err)
	require.Len(t, mgr.Migrations(), 1)

	applied, err := mgr.Up(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_foo", "A", "B")
	writeMigration(t, dir, "0002_bar", "C", "D")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("^C$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mgr, err := NewManager(db, dir)
	require.NoError(t, err)

	applied, err := mgr.Up(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_RecordFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_foo", "A", "B")
	writeMigration(t, dir, "0002_bar", "C", "D")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectBegin()
	mock.ExpectExec("^A$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(1).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	mgr, err := NewManager(db, dir)
	require.NoError(t, err)

	applied, err := mgr.Up(context.Background())
	require.ErrorContains(t, err, "record version 1: disk full")
	require.Equal(t, 0, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDown_RollsBackLatestMigration(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_foo", "X", "Y")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("^Y$").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM schema_migrations WHERE version = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mgr, err := NewManager(db, dir)
	require.NoError(t, err)

	require.NoError(t, mgr.Down(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_foo", "A", "B")
	writeMigration(t, dir, "0002_bar", "C", "D")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))

	mgr, err := NewManager(db, dir)
	require.NoError(t, err)

	status, err := mgr.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Current version: 1\n0001_foo: applied\n0002_bar: pending", status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewManager_MissingDir(t *testing.T) {
	_, err := NewManager(nil, filepath.Join(t.TempDir(), "nope"))
	require.ErrorContains(t, err, "read migrations dir")
}

func TestShippedMigrations(t *testing.T) {
	mgr, err := NewManager(nil, filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, mgr.Migrations())
	for _, mig := range mgr.Migrations() {
		require.NotEmpty(t, mig.UpSQL, mig.Name)
		require.NotEmpty(t, mig.DownSQL, mig.Name)
	}
}
