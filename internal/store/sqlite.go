package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	bufferSize    = 1024
	batchSize     = 100
	flushInterval = 500 * time.Millisecond
)

// SQLiteStore implements Store with buffered writes to SQLite.
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	writeCh chan *EvaluationRecord
	wg      sync.WaitGroup
}

// NewSQLiteStore opens (or creates) a SQLite database and starts the
// background write consumer.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(2) // one for writer, one for readers
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		logger:  logger,
		writeCh: make(chan *EvaluationRecord, bufferSize),
	}

	s.wg.Add(1)
	go s.consumeWrites()

	return s, nil
}

// LogEvaluation enqueues an evaluation for async persistence.
func (s *SQLiteStore) LogEvaluation(_ context.Context, record *EvaluationRecord) error {
	select {
	case s.writeCh <- record:
		return nil
	default:
		s.logger.Warn("write buffer full, dropping evaluation", "item", record.ItemID)
		return nil
	}
}

func (s *SQLiteStore) consumeWrites() {
	defer s.wg.Done()

	batch := make([]*EvaluationRecord, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case record, ok := <-s.writeCh:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}
			batch = append(batch, record)
			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *SQLiteStore) flushBatch(batch []*EvaluationRecord) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`
		INSERT INTO evaluations (id, timestamp, run_id, item_id, item_name, category, context, decision, stage, signal, value, trace)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		s.logger.Error("prepare insert", "error", err)
		return
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.Exec(
			r.ID,
			r.Timestamp.Format(time.RFC3339Nano),
			r.RunID,
			r.ItemID,
			r.ItemName,
			r.Category,
			r.Context,
			r.Decision,
			nilIfEmpty(r.Stage),
			nilIfEmpty(r.Signal),
			nilIfEmpty(r.Value),
			nilIfEmpty(r.TraceJSON),
		)
		if err != nil {
			s.logger.Error("insert evaluation", "error", err, "item", r.ItemID)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit batch", "error", err)
	}
}

// Query retrieves evaluations matching the filter.
func (s *SQLiteStore) Query(_ context.Context, f QueryFilter) ([]EvaluationRecord, error) {
	var conditions []string
	var args []any

	if f.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Context != "" {
		conditions = append(conditions, "context = ?")
		args = append(args, f.Context)
	}
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if f.Decision != "" {
		conditions = append(conditions, "decision = ?")
		args = append(args, f.Decision)
	}
	if f.Stage != "" {
		conditions = append(conditions, "stage = ?")
		args = append(args, f.Stage)
	}
	if f.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, f.Since.Format(time.RFC3339Nano))
	}

	query := "SELECT id, timestamp, run_id, item_id, item_name, category, context, decision, stage, signal, value, trace FROM evaluations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var records []EvaluationRecord
	for rows.Next() {
		r, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetEvaluation retrieves a single evaluation by ID.
func (s *SQLiteStore) GetEvaluation(_ context.Context, id string) (*EvaluationRecord, error) {
	row := s.db.QueryRow(
		"SELECT id, timestamp, run_id, item_id, item_name, category, context, decision, stage, signal, value, trace FROM evaluations WHERE id = ?",
		id,
	)
	r, err := scanEvaluationRow(row)
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return &r, nil
}

// Stats returns aggregate statistics, optionally for one run.
func (s *SQLiteStore) Stats(_ context.Context, runID string) (*Stats, error) {
	st := &Stats{
		StageCounts:  make(map[string]int),
		SignalCounts: make(map[string]int),
	}

	whereClause := ""
	var args []any
	if runID != "" {
		whereClause = " WHERE run_id = ?"
		args = append(args, runID)
	}

	rows, err := s.db.Query("SELECT decision, COUNT(*) FROM evaluations"+whereClause+" GROUP BY decision", args...)
	if err != nil {
		return nil, fmt.Errorf("stats decisions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			continue
		}
		st.TotalEvaluations += count
		switch decision {
		case "allow":
			st.AllowCount = count
		case "block":
			st.BlockCount = count
		case "unknown":
			st.UnknownCount = count
		}
	}

	stageQuery := "SELECT stage, COUNT(*) FROM evaluations WHERE stage IS NOT NULL AND stage != ''"
	if runID != "" {
		stageQuery += " AND run_id = ?"
	}
	stageQuery += " GROUP BY stage"
	rows2, err := s.db.Query(stageQuery, args...)
	if err != nil {
		return st, nil // return partial stats
	}
	defer rows2.Close()
	for rows2.Next() {
		var stage string
		var count int
		if err := rows2.Scan(&stage, &count); err != nil {
			continue
		}
		st.StageCounts[stage] = count
	}

	signalQuery := "SELECT signal, COUNT(*) FROM evaluations WHERE signal IS NOT NULL AND signal != ''"
	if runID != "" {
		signalQuery += " AND run_id = ?"
	}
	signalQuery += " GROUP BY signal ORDER BY COUNT(*) DESC LIMIT 20"
	rows3, err := s.db.Query(signalQuery, args...)
	if err != nil {
		return st, nil
	}
	defer rows3.Close()
	for rows3.Next() {
		var signal string
		var count int
		if err := rows3.Scan(&signal, &count); err != nil {
			continue
		}
		st.SignalCounts[signal] = count
	}

	return st, nil
}

// CreateRun records a new batch evaluation run.
func (s *SQLiteStore) CreateRun(_ context.Context, run *Run) error {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, started_at, context, rules_path, catalog_path) VALUES (?, ?, ?, ?, ?)",
		run.ID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.Context,
		run.RulesPath,
		run.CatalogPath,
	)
	return err
}

// EndRun marks a run as ended.
func (s *SQLiteStore) EndRun(_ context.Context, runID string) error {
	_, err := s.db.Exec(
		"UPDATE runs SET ended_at = ? WHERE id = ?",
		time.Now().Format(time.RFC3339Nano),
		runID,
	)
	return err
}

// GetRuns retrieves recent runs, newest first.
func (s *SQLiteStore) GetRuns(_ context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, started_at, ended_at, context, rules_path, catalog_path FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var ended sql.NullString
		if err := rows.Scan(&r.ID, &started, &ended, &r.Context, &r.RulesPath, &r.CatalogPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if ended.Valid {
			t, _ := time.Parse(time.RFC3339Nano, ended.String)
			r.EndedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close flushes pending writes and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.writeCh)
	s.wg.Wait()
	return s.db.Close()
}

// scanner is an interface satisfied by both *sql.Rows and *sql.Row.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluationFromScanner(sc scanner) (EvaluationRecord, error) {
	var r EvaluationRecord
	var ts string
	var stage, signal, value, trace sql.NullString

	err := sc.Scan(&r.ID, &ts, &r.RunID, &r.ItemID, &r.ItemName,
		&r.Category, &r.Context, &r.Decision, &stage, &signal, &value, &trace)
	if err != nil {
		return r, err
	}

	r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	r.Stage = stage.String
	r.Signal = signal.String
	r.Value = value.String
	r.TraceJSON = trace.String
	return r, nil
}

func scanEvaluation(rows *sql.Rows) (EvaluationRecord, error) {
	return scanEvaluationFromScanner(rows)
}

func scanEvaluationRow(row *sql.Row) (EvaluationRecord, error) {
	return scanEvaluationFromScanner(row)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
