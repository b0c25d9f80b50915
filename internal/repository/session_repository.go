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

const sessionColumns = `id, title, description, tutor_id, student_id, start_time, duration_minutes, status, created_at, updated_at`

type PostgresSessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{Repository: base.NewRepository(pool)}
}

var _ SessionRepository = (*PostgresSessionRepository)(nil)

func scanSession(row pgx.Row) (*model.Session, error) {
	var session model.Session
	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.Description,
		&session.TutorID,
		&session.StudentID,
		&session.StartTime,
		&session.DurationMinutes,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func scanSessionRows(rows pgx.Rows) (*model.Session, error) {
	session, err := scanSession(rows)
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

// Save создаёт или обновляет занятие
func (r *PostgresSessionRepository) Save(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	query := `
		INSERT INTO sessions (id, title, description, tutor_id, student_id, start_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    student_id = EXCLUDED.student_id,
		    start_time = EXCLUDED.start_time,
		    duration_minutes = EXCLUDED.duration_minutes,
		    status = EXCLUDED.status,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		session.ID,
		session.Title,
		session.Description,
		session.TutorID,
		session.StudentID,
		session.StartTime,
		session.DurationMinutes,
		session.Status,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// GetByID получает занятие по ID
func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// ListByTutor получает все неотменённые занятия учителя
func (r *PostgresSessionRepository) ListByTutor(ctx context.Context, tutorID string) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE tutor_id = $1
		  AND status NOT IN ('cancelled_by_student', 'cancelled_by_tutor')
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get sessions by tutor: %w", err)
	}

	return base.CollectRows(rows, scanSessionRows)
}

// ListForUser получает неотменённые занятия пользователя, пересекающие [from, to)
func (r *PostgresSessionRepository) ListForUser(ctx context.Context, userID string, from, to time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE (tutor_id = $1 OR student_id = $1)
		  AND status NOT IN ('cancelled_by_student', 'cancelled_by_tutor')
		  AND start_time < $3
		  AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get sessions for user: %w", err)
	}

	return base.CollectRows(rows, scanSessionRows)
}

// ListBookedEndedBefore получает прошедшие занятия со студентом, которые ещё не закрыты
func (r *PostgresSessionRepository) ListBookedEndedBefore(ctx context.Context, t time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'scheduled'
		  AND student_id IS NOT NULL
		  AND start_time + make_interval(mins => duration_minutes) <= $1
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("get finished sessions: %w", err)
	}

	return base.CollectRows(rows, scanSessionRows)
}

// CountByTutor считает занятия учителя и его отмены
func (r *PostgresSessionRepository) CountByTutor(ctx context.Context, tutorID string) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'cancelled_by_tutor')
		FROM sessions
		WHERE tutor_id = $1
	`

	var total, cancelled int
	if err := r.QueryRow(ctx, query, tutorID).Scan(&total, &cancelled); err != nil {
		return 0, 0, fmt.Errorf("count sessions by tutor: %w", err)
	}

	return total, cancelled, nil
}
