package stats

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	pkgerrors "github.com/pkg/errors"
)

// SQLSink is a database/sql-backed Collector that records one row per
// PassRecord, keyed by the pipeline run-id.
type SQLSink struct {
	db     *sql.DB
	driver string
	table  string
}

// driverForDSN maps a DSN's scheme prefix to the database/sql driver
// name.
func driverForDSN(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, "mysql://"), strings.Contains(dsn, "@tcp("):
		return "mysql", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver", nil
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return "sqlite3", nil
	default:
		return "", pkgerrors.Errorf("stats: cannot infer SQL driver from DSN %q", dsn)
	}
}

// NewSQLSink opens dsn, selecting the driver by scheme (mysql://,
// postgres(ql)://, sqlserver://, sqlite://... or a bare .db path /
// ":memory:" for sqlite3), and ensures the statistics table exists.
func NewSQLSink(dsn, table string) (*SQLSink, error) {
	driver, err := driverForDSN(dsn)
	if err != nil {
		return nil, err
	}
	trimmed := dsn
	for _, prefix := range []string{"mysql://", "postgres://", "postgresql://", "sqlserver://", "sqlite://"} {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	db, err := sql.Open(driver, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "stats: opening %s DSN", driver)
	}
	s := &SQLSink{db: db, driver: driver, table: table}
	if err := s.ensureTable(driver); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLSink) ensureTable(driver string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		run_id TEXT NOT NULL,
		pass_id TEXT NOT NULL,
		pre_nodes INTEGER NOT NULL,
		post_nodes INTEGER NOT NULL,
		elapsed_ns BIGINT NOT NULL
	)`, s.table)
	_, err := s.db.Exec(ddl)
	if err != nil {
		return pkgerrors.Wrapf(err, "stats: creating %s table on %s", s.table, driver)
	}
	return nil
}

// placeholders renders n bind parameters in the dialect the selected
// driver expects (? for mysql/sqlite3, $N for postgres, @pN for
// sqlserver).
func (s *SQLSink) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		switch s.driver {
		case "postgres":
			parts[i] = fmt.Sprintf("$%d", i+1)
		case "sqlserver":
			parts[i] = fmt.Sprintf("@p%d", i+1)
		default:
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// Record inserts one row per PassRecord.
func (s *SQLSink) Record(r PassRecord) error {
	_, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s (run_id, pass_id, pre_nodes, post_nodes, elapsed_ns) VALUES (%s)", s.table, s.placeholders(5)),
		r.RunID.String(), r.PassID, r.PreNodes, r.PostNodes, r.Elapsed.Nanoseconds(),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "stats: inserting pass record")
	}
	return nil
}

// Close releases the underlying *sql.DB.
func (s *SQLSink) Close() error { return s.db.Close() }
