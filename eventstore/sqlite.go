// Package eventstore adapts the teacher's transactional-outbox persistence
// pattern from state-checkpointing to event-sinking: every call against the
// simulation's events.Sink becomes a durable row instead of (or in addition
// to) a live emission, so the observable trace survives a crash and can be
// replayed for offline comparison against the canonical line format.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/officeflow/events"
)

// record is the JSON payload stored per outbox row, mirroring
// events.Entry's fields so a stored row can be turned back into a canonical
// trace line without any other context.
type record struct {
	Type         string          `json:"type"`
	Office       string          `json:"office,omitempty"`
	Office2      string          `json:"office2,omitempty"`
	Customer     string          `json:"customer,omitempty"`
	Document     string          `json:"document,omitempty"`
	CounterIndex int             `json:"counter_index,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Snapshot     []string        `json:"snapshot,omitempty"`
	Result       *events.Result  `json:"result,omitempty"`
	ServiceMS    int64           `json:"service_ms,omitempty"`
}

// Row is a persisted event as returned by PendingEvents: its outbox id, the
// decoded payload, and when it was written.
type Row struct {
	ID        int64
	Record    record
	CreatedAt time.Time
}

// SQLiteEventStore implements events.Sink by appending to a SQLite-backed
// events_outbox table, following the teacher's SQLiteStore: WAL mode, a
// single writer connection, and an emitted_at marker for at-least-once
// delivery rather than deleting rows on read.
type SQLiteEventStore struct {
	db *sql.DB

	mu       sync.RWMutex
	closed   bool
	lastErr  error
}

// NewSQLiteEventStore opens (creating if necessary) a SQLite database at
// path and ensures the outbox schema exists.
func NewSQLiteEventStore(path string) (*SQLiteEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: set busy timeout: %w", err)
	}

	s := &SQLiteEventStore{db: db}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) createSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS events_outbox (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_data TEXT NOT NULL,
			emitted_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("eventstore: create events_outbox: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_events_pending ON events_outbox(emitted_at, created_at)"); err != nil {
		return fmt.Errorf("eventstore: create idx_events_pending: %w", err)
	}
	return nil
}

// append inserts r as a new outbox row. Failures are recorded on the store
// (see LastErr) rather than returned, since Sink methods return nothing
// and must never let a storage failure propagate into the simulation core.
func (s *SQLiteEventStore) append(r record) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	payload, err := json.Marshal(r)
	if err != nil {
		s.recordErr(fmt.Errorf("eventstore: marshal event: %w", err))
		return
	}

	if _, err := s.db.ExecContext(context.Background(),
		"INSERT INTO events_outbox (event_data) VALUES (?)", string(payload)); err != nil {
		s.recordErr(fmt.Errorf("eventstore: insert event: %w", err))
	}
}

func (s *SQLiteEventStore) recordErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastErr returns the most recent storage failure, if any, without
// blocking the sink's otherwise best-effort contract.
func (s *SQLiteEventStore) LastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// PendingEvents returns up to limit events that have not yet been marked
// emitted, oldest first.
func (s *SQLiteEventStore) PendingEvents(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_data, created_at FROM events_outbox
		 WHERE emitted_at IS NULL ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query pending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var id int64
		var payload string
		var createdAt time.Time
		if err := rows.Scan(&id, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("eventstore: scan pending: %w", err)
		}
		var rec record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("eventstore: unmarshal pending: %w", err)
		}
		out = append(out, Row{ID: id, Record: rec, CreatedAt: createdAt})
	}
	return out, rows.Err()
}

// MarkEventsEmitted stamps emitted_at on every id so PendingEvents will not
// return them again.
func (s *SQLiteEventStore) MarkEventsEmitted(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = id
	}
	query := fmt.Sprintf("UPDATE events_outbox SET emitted_at = CURRENT_TIMESTAMP WHERE id IN (%s)", placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("eventstore: mark emitted: %w", err)
	}
	return nil
}

// Close closes the underlying database connection. Safe to call more than
// once.
func (s *SQLiteEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteEventStore) System(msg string) {
	s.append(record{Type: "system", Reason: msg})
}

func (s *SQLiteEventStore) Office(officeName, msg string) {
	s.append(record{Type: "office", Office: officeName, Reason: msg})
}

func (s *SQLiteEventStore) Customer(customerID, msg string) {
	s.append(record{Type: "customer", Customer: customerID, Reason: msg})
}

func (s *SQLiteEventStore) OfficeArrival(office, customer, doc string) {
	s.append(record{Type: "office_arrival", Office: office, Customer: customer, Document: doc})
}

func (s *SQLiteEventStore) RequestAccepted(office, customer, doc string) {
	s.append(record{Type: "request_accepted", Office: office, Customer: customer, Document: doc})
}

func (s *SQLiteEventStore) Queue(office, customer, doc string, snapshot []string) {
	s.append(record{Type: "queue", Office: office, Customer: customer, Document: doc, Snapshot: snapshot})
}

func (s *SQLiteEventStore) CounterStart(office string, counterIndex int, customer, doc string) {
	s.append(record{Type: "counter_start", Office: office, CounterIndex: counterIndex, Customer: customer, Document: doc})
}

func (s *SQLiteEventStore) Transport(fromOffice, toOffice, doc string) {
	s.append(record{Type: "transport", Office: fromOffice, Office2: toOffice, Document: doc})
}

func (s *SQLiteEventStore) Cancel(office, customer, doc, reason string) {
	s.append(record{Type: "cancel", Office: office, Customer: customer, Document: doc, Reason: reason})
}

func (s *SQLiteEventStore) CounterFinish(office string, counterIndex int, customer, doc string) {
	s.append(record{Type: "counter_finish", Office: office, CounterIndex: counterIndex, Customer: customer, Document: doc})
}

func (s *SQLiteEventStore) Issued(result events.Result) {
	r := result
	s.append(record{
		Type:      "issued",
		Office:    result.IssuingOffice,
		Customer:  result.CustomerID,
		Document:  result.DocumentName,
		ServiceMS: result.ServiceDuration.Milliseconds(),
		Result:    &r,
	})
}
