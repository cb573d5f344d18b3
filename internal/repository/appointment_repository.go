package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/model"
)

// AppointmentRepository reads scheduled_appointment documents. Each row keeps
// the document as written in a jsonb column.
type AppointmentRepository struct {
	db *database.Postgres
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(db *database.Postgres) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// GetByID returns the document with the given id. A row whose document is
// empty yields (nil, nil).
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	query := `SELECT data FROM scheduled_appointment WHERE id = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	appt, err := model.DecodeAppointment(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode appointment %s: %w", id, err)
	}
	return appt, nil
}

// Create stores a new document and returns its id. The insert fires the
// scheduled_appointment_created notification.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) (string, error) {
	data, err := json.Marshal(appt)
	if err != nil {
		return "", fmt.Errorf("failed to encode appointment: %w", err)
	}

	id := uuid.NewString()
	query := `INSERT INTO scheduled_appointment (id, data) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, id, data); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("failed to create appointment: %w", err)
	}
	return id, nil
}
