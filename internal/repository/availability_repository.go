package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresAvailabilityRepository struct {
	*base.Repository
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *PostgresAvailabilityRepository {
	return &PostgresAvailabilityRepository{Repository: base.NewRepository(pool)}
}

var _ AvailabilityRepository = (*PostgresAvailabilityRepository)(nil)

// Create сохраняет новый слот доступности
func (r *PostgresAvailabilityRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}

	query := `
		INSERT INTO availability_slots (id, tutor_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query, slot.ID, slot.TutorID, slot.StartTime, slot.EndTime).Scan(&slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}

	return nil
}

// ListByTutor получает слоты учителя, пересекающие период
func (r *PostgresAvailabilityRepository) ListByTutor(ctx context.Context, tutorID string, from, to time.Time) ([]model.AvailabilitySlot, error) {
	query := `
		SELECT id, tutor_id, start_time, end_time, created_at
		FROM availability_slots
		WHERE tutor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, tutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get availability by tutor: %w", err)
	}

	return base.CollectRows(rows, func(rows pgx.Rows) (model.AvailabilitySlot, error) {
		var slot model.AvailabilitySlot
		err := rows.Scan(&slot.ID, &slot.TutorID, &slot.StartTime, &slot.EndTime, &slot.CreatedAt)
		if err != nil {
			return slot, fmt.Errorf("scan availability slot: %w", err)
		}
		return slot, nil
	})
}
