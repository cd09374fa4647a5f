package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

// HistoryStore is a SQLite-backed implementation of dispatch.HistoryStore.
type HistoryStore struct {
	db *sql.DB
}

var _ dispatch.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore opens the history database described by cfg and opts.
func NewHistoryStore(cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &HistoryStore{db: db}
	if cfg.Migrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dispatch_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL,
			command TEXT NOT NULL,
			code TEXT NOT NULL,
			success INTEGER NOT NULL,
			source TEXT NOT NULL,
			action_id TEXT NOT NULL,
			target_url TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_source ON dispatch_history(source);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON dispatch_history(timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Report appends the report to the history.
func (s *HistoryStore) Report(ctx context.Context, report dispatch.Report) error {
	_, err := s.Save(ctx, report)
	return err
}

// Save appends the report and returns its record id.
func (s *HistoryStore) Save(ctx context.Context, report dispatch.Report) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ts := report.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_history (cycle_id, command, code, success, source, action_id, target_url, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.CycleID, report.Command, report.Code, report.Success,
		string(report.Source), string(report.ActionID), report.TargetURL, ts.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves a record by id.
func (s *HistoryStore) Get(ctx context.Context, id int64) (dispatch.Record, error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Record{}, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM dispatch_history WHERE id = ?",
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dispatch.Record{}, fmt.Errorf("%w: %d", dispatch.ErrRecordNotFound, id)
	}
	return rec, err
}

// List returns records matching the filter, newest first.
func (s *HistoryStore) List(ctx context.Context, filter dispatch.ListFilter) ([]dispatch.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []dispatch.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *HistoryStore) DB() *sql.DB {
	return s.db
}

const columns = "id, cycle_id, command, code, success, source, action_id, target_url, timestamp"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (dispatch.Record, error) {
	var (
		rec      dispatch.Record
		source   string
		actionID string
		ts       int64
	)
	if err := sc.Scan(&rec.ID, &rec.CycleID, &rec.Command, &rec.Code, &rec.Success,
		&source, &actionID, &rec.TargetURL, &ts); err != nil {
		return dispatch.Record{}, err
	}
	rec.Source = dispatch.Source(source)
	rec.ActionID = action.ID(actionID)
	rec.Timestamp = time.Unix(0, ts)
	return rec, nil
}

func buildListQuery(filter dispatch.ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.SuccessOnly {
		conditions = append(conditions, "success = 1")
	}
	if filter.FailedOnly {
		conditions = append(conditions, "success = 0")
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UnixNano())
	}

	query := "SELECT " + columns + " FROM dispatch_history"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args
}
