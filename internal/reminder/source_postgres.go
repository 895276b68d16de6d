package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// querier is the subset of pgxpool.Pool the source needs; pgxmock satisfies
// it in tests.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads upcoming appointments from the scheduling console's
// database. Read-only; this engine never writes medical data.
type PostgresSource struct {
	pool querier
}

// NewPostgresSource creates an appointment source over the given pool.
func NewPostgresSource(pool querier) *PostgresSource {
	if pool == nil {
		return nil
	}
	return &PostgresSource{pool: pool}
}

// ListForDay returns confirmed appointments scheduled within the given
// calendar day, ordered by time.
func (s *PostgresSource) ListForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.patient_id, p.full_name, p.phone, a.scheduled_at,
		       a.doctor_name, a.specialty, a.location
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
		  AND a.status = 'confirmed'
		ORDER BY a.scheduled_at ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("reminder: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PhoneNumber,
			&a.ScheduledAt, &a.Doctor, &a.Specialty, &a.Location); err != nil {
			return nil, fmt.Errorf("reminder: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
