package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists registrations and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Bootstrap creates the schema when it does not exist yet. There is
// deliberately no unique index on (email, calendar_day, status): racing
// check-ins may briefly write duplicates and the sweeper converges them.
func (r *Repository) Bootstrap(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registrations (
			email         TEXT PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			telephone     TEXT NOT NULL DEFAULT '',
			address       TEXT NOT NULL DEFAULT '',
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS attendance_records (
			id           UUID PRIMARY KEY,
			email        TEXT NOT NULL,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			calendar_day TIMESTAMPTZ NOT NULL,
			status       TEXT NOT NULL,
			progress     TEXT NOT NULL,
			event_time   TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_attendance_email_day
			ON attendance_records (email, calendar_day);
	`)
	return err
}

// InsertRecord writes a new attendance record.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, email, first_name, last_name, calendar_day, status, progress, event_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.Email, rec.FirstName, rec.LastName, rec.CalendarDay, rec.Status, rec.Progress, rec.EventTime)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// RecordsForDay returns a person's records within [start, end), newest first.
func (r *Repository) RecordsForDay(ctx context.Context, email string, start, end time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, first_name, last_name, calendar_day, status, progress, event_time
		FROM attendance_records
		WHERE email = $1 AND calendar_day >= $2 AND calendar_day < $3
		ORDER BY event_time DESC
	`, email, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecordsForDayAll returns every record within [start, end) across all
// people, oldest first, for the daily summary.
func (r *Repository) RecordsForDayAll(ctx context.Context, start, end time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, first_name, last_name, calendar_day, status, progress, event_time
		FROM attendance_records
		WHERE calendar_day >= $1 AND calendar_day < $2
		ORDER BY event_time ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteRecord removes a single record by id.
func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	return err
}

// DeleteRecordsByEmail removes every record for an email. Used by the
// delete-user cascade.
func (r *Repository) DeleteRecordsByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE email = $1`, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.CalendarDay, &rec.Status, &rec.Progress, &rec.EventTime); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// -------- Registrations --------

// FindPerson returns the registration for an email, or nil when unknown.
func (r *Repository) FindPerson(ctx context.Context, email string) (*Person, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, first_name, last_name, telephone, address, registered_at
		FROM registrations WHERE email = $1
	`, email)
	var p Person
	if err := row.Scan(&p.Email, &p.FirstName, &p.LastName, &p.Telephone, &p.Address, &p.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreatePerson registers a new person. Fails on duplicate email.
func (r *Repository) CreatePerson(ctx context.Context, p Person) (Person, error) {
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (email, first_name, last_name, telephone, address, registered_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, p.Email, p.FirstName, p.LastName, p.Telephone, p.Address, p.RegisteredAt)
	if err != nil {
		return Person{}, err
	}
	return p, nil
}

// ListPersons returns all registrations, newest first.
func (r *Repository) ListPersons(ctx context.Context) ([]Person, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, first_name, last_name, telephone, address, registered_at
		FROM registrations ORDER BY registered_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.Email, &p.FirstName, &p.LastName, &p.Telephone, &p.Address, &p.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePerson removes a registration. Callers cascade record deletion via
// DeleteRecordsByEmail.
func (r *Repository) DeletePerson(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE email = $1`, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
