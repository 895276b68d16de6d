// Package calls persists call attempts and call errors. Pure reads and
// writes; strategy decisions live in the dialer.
package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists call audit state in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore creates a Store over the given pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// UpsertAttempt inserts or updates the attempt keyed by conversation id.
// Re-submitting the same id updates status, metadata and updated_at in
// place; last write wins.
func (s *Store) UpsertAttempt(ctx context.Context, a Attempt) error {
	if strings.TrimSpace(a.ConversationID) == "" {
		return errors.New("calls: conversation id required")
	}
	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO call_attempts (conversation_id, agent_id, phone_number, patient_id, appointment_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (conversation_id) DO UPDATE SET
		    agent_id = EXCLUDED.agent_id,
		    status = EXCLUDED.status,
		    metadata = EXCLUDED.metadata,
		    updated_at = now()`,
		a.ConversationID, a.AgentID, a.PhoneNumber, a.PatientID, a.AppointmentID, a.Status, metadata)
	if err != nil {
		return fmt.Errorf("calls: upsert attempt: %w", err)
	}
	return nil
}

// AppendError records an audit row for a failed call path. Rows are never
// updated or deleted.
func (s *Store) AppendError(ctx context.Context, phoneNumber string, patientID *string, details map[string]any) error {
	payload, err := marshalMetadata(details)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO call_errors (phone_number, patient_id, error_details, created_at)
		VALUES ($1, $2, $3, now())`,
		phoneNumber, patientID, payload)
	if err != nil {
		return fmt.Errorf("calls: append error: %w", err)
	}
	return nil
}

// MarkEnded moves an attempt to the ended status.
func (s *Store) MarkEnded(ctx context.Context, conversationID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE call_attempts SET status = $2, updated_at = now()
		WHERE conversation_id = $1`,
		conversationID, StatusEnded)
	if err != nil {
		return fmt.Errorf("calls: mark ended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetAttempt returns the attempt for conversationID, or nil when unknown.
func (s *Store) GetAttempt(ctx context.Context, conversationID string) (*Attempt, error) {
	var (
		a        Attempt
		metadata []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT conversation_id, agent_id, phone_number, patient_id, appointment_id, status, metadata, created_at, updated_at
		FROM call_attempts WHERE conversation_id = $1`, conversationID).
		Scan(&a.ConversationID, &a.AgentID, &a.PhoneNumber, &a.PatientID, &a.AppointmentID, &a.Status, &metadata, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("calls: get attempt: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("calls: decode metadata: %w", err)
		}
	}
	return &a, nil
}

// RecentErrors lists the latest error rows for a phone number, newest first.
func (s *Store) RecentErrors(ctx context.Context, phoneNumber string, limit int) ([]ErrorRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, phone_number, patient_id, error_details, created_at
		FROM call_errors WHERE phone_number = $1
		ORDER BY created_at DESC LIMIT $2`, phoneNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("calls: recent errors: %w", err)
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var (
			rec     ErrorRecord
			details []byte
		)
		if err := rows.Scan(&rec.ID, &rec.PhoneNumber, &rec.PatientID, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("calls: scan error row: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("calls: decode error details: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("calls: marshal metadata: %w", err)
	}
	return payload, nil
}
