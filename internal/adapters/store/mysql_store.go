package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chbs/lead-outreach/internal/core"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ContactStore and SendHistory
// interfaces
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR(36) PRIMARY KEY,
			first_name VARCHAR(255),
			last_name VARCHAR(255),
			full_name VARCHAR(255),
			email VARCHAR(255),
			phone VARCHAR(64),
			address VARCHAR(512),
			lead_type VARCHAR(32),
			status VARCHAR(32),
			notes TEXT,
			last_contacted_at TIMESTAMP NULL,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create contacts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS send_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			recipient_email VARCHAR(255),
			sent_at TIMESTAMP,
			succeeded BOOLEAN,
			error_reason TEXT,
			INDEX idx_recipient_email (recipient_email)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create send_events table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// List returns all stored contacts, newest first
func (s *MySQLStore) List(ctx context.Context) ([]core.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, full_name, email, phone, address,
		       lead_type, status, notes, last_contacted_at, created_at
		FROM contacts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []core.Contact
	for rows.Next() {
		contact, err := scanMySQLContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}

// Get retrieves a contact by id
func (s *MySQLStore) Get(ctx context.Context, id string) (*core.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, full_name, email, phone, address,
		       lead_type, status, notes, last_contacted_at, created_at
		FROM contacts
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, core.ErrNotFound
	}
	return scanMySQLContact(rows)
}

// Create stores a new contact and returns its assigned id
func (s *MySQLStore) Create(ctx context.Context, contact *core.Contact) (string, error) {
	id := uuid.NewString()
	status := contact.Status
	if status == "" {
		status = core.StatusNew
	}
	createdAt := contact.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, first_name, last_name, full_name, email, phone,
		                      address, lead_type, status, notes, last_contacted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, contact.FirstName, contact.LastName, contact.FullName, contact.Email,
		contact.Phone, contact.Address, string(contact.LeadType), string(status),
		contact.Notes, contact.LastContactedAt, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert contact: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of the partial update
func (s *MySQLStore) Update(ctx context.Context, id string, update core.ContactUpdate) error {
	sets := make([]string, 0, 10)
	args := make([]interface{}, 0, 11)
	if update.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *update.FirstName)
	}
	if update.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *update.LastName)
	}
	if update.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *update.FullName)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *update.Phone)
	}
	if update.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *update.Address)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.LeadType != nil {
		sets = append(sets, "lead_type = ?")
		args = append(args, string(*update.LeadType))
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	if update.LastContactedAt != nil {
		sets = append(sets, "last_contacted_at = ?")
		args = append(args, *update.LastContactedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes a contact
func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// RecordSend appends an attempt to the history
func (s *MySQLStore) RecordSend(ctx context.Context, event *core.SendEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO send_events (recipient_email, sent_at, succeeded, error_reason)
		VALUES (?, ?, ?, ?)
	`, event.RecipientEmail, event.SentAt, event.Succeeded, event.ErrorReason)
	if err != nil {
		return fmt.Errorf("failed to insert send event: %w", err)
	}
	return nil
}

// ListSends returns recorded events, optionally filtered by recipient email
func (s *MySQLStore) ListSends(ctx context.Context, email string) ([]core.SendEvent, error) {
	query := `
		SELECT recipient_email, sent_at, succeeded, error_reason
		FROM send_events
	`
	var args []interface{}
	if email != "" {
		query += " WHERE recipient_email = ?"
		args = append(args, email)
	}
	query += " ORDER BY sent_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list send events: %w", err)
	}
	defer rows.Close()

	var events []core.SendEvent
	for rows.Next() {
		var event core.SendEvent
		if err := rows.Scan(&event.RecipientEmail, &event.SentAt, &event.Succeeded, &event.ErrorReason); err != nil {
			return nil, fmt.Errorf("failed to scan send event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// scanMySQLContact reads one contact row
func scanMySQLContact(rows *sql.Rows) (*core.Contact, error) {
	var contact core.Contact
	var leadType, status string
	var lastContacted sql.NullTime

	err := rows.Scan(&contact.ID, &contact.FirstName, &contact.LastName,
		&contact.FullName, &contact.Email, &contact.Phone, &contact.Address,
		&leadType, &status, &contact.Notes, &lastContacted, &contact.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	contact.LeadType = core.LeadType(leadType)
	contact.Status = core.Status(status)
	if lastContacted.Valid {
		t := lastContacted.Time
		contact.LastContactedAt = &t
	}
	return &contact, nil
}
