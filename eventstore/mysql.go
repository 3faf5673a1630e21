package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dshills/officeflow/events"
)

// MySQLEventStore is the same outbox-backed events.Sink as
// SQLiteEventStore, against a shared MySQL/MariaDB database — for
// deployments that centralize every simulation process's event log rather
// than writing one SQLite file per process, following the teacher's
// MySQLStore connection-pooling shape.
type MySQLEventStore struct {
	db *sql.DB

	mu      sync.RWMutex
	closed  bool
	lastErr error
}

// NewMySQLEventStore opens a MySQL connection using dsn (e.g.
// "user:pass@tcp(localhost:3306)/officeflow?parseTime=true") and ensures the
// outbox schema exists.
func NewMySQLEventStore(dsn string) (*MySQLEventStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventstore: ping mysql: %w", err)
	}

	s := &MySQLEventStore{db: db}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLEventStore) createSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS events_outbox (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			event_data JSON NOT NULL,
			emitted_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_events_pending (emitted_at, created_at)
		)
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("eventstore: create events_outbox: %w", err)
	}
	return nil
}

func (s *MySQLEventStore) append(r record) {
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

func (s *MySQLEventStore) recordErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastErr returns the most recent storage failure, if any.
func (s *MySQLEventStore) LastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// PendingEvents returns up to limit events not yet marked emitted, oldest
// first.
func (s *MySQLEventStore) PendingEvents(ctx context.Context, limit int) ([]Row, error) {
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

// MarkEventsEmitted stamps emitted_at on every id.
func (s *MySQLEventStore) MarkEventsEmitted(ctx context.Context, ids []int64) error {
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

// Close closes the underlying connection pool. Safe to call more than once.
func (s *MySQLEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *MySQLEventStore) System(msg string) {
	s.append(record{Type: "system", Reason: msg})
}

func (s *MySQLEventStore) Office(officeName, msg string) {
	s.append(record{Type: "office", Office: officeName, Reason: msg})
}

func (s *MySQLEventStore) Customer(customerID, msg string) {
	s.append(record{Type: "customer", Customer: customerID, Reason: msg})
}

func (s *MySQLEventStore) OfficeArrival(office, customer, doc string) {
	s.append(record{Type: "office_arrival", Office: office, Customer: customer, Document: doc})
}

func (s *MySQLEventStore) RequestAccepted(office, customer, doc string) {
	s.append(record{Type: "request_accepted", Office: office, Customer: customer, Document: doc})
}

func (s *MySQLEventStore) Queue(office, customer, doc string, snapshot []string) {
	s.append(record{Type: "queue", Office: office, Customer: customer, Document: doc, Snapshot: snapshot})
}

func (s *MySQLEventStore) CounterStart(office string, counterIndex int, customer, doc string) {
	s.append(record{Type: "counter_start", Office: office, CounterIndex: counterIndex, Customer: customer, Document: doc})
}

func (s *MySQLEventStore) Transport(fromOffice, toOffice, doc string) {
	s.append(record{Type: "transport", Office: fromOffice, Office2: toOffice, Document: doc})
}

func (s *MySQLEventStore) Cancel(office, customer, doc, reason string) {
	s.append(record{Type: "cancel", Office: office, Customer: customer, Document: doc, Reason: reason})
}

func (s *MySQLEventStore) CounterFinish(office string, counterIndex int, customer, doc string) {
	s.append(record{Type: "counter_finish", Office: office, CounterIndex: counterIndex, Customer: customer, Document: doc})
}

func (s *MySQLEventStore) Issued(result events.Result) {
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
