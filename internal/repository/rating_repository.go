package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRatingRepository struct {
	*base.Repository
}

func NewRatingRepository(pool *pgxpool.Pool) *PostgresRatingRepository {
	return &PostgresRatingRepository{Repository: base.NewRepository(pool)}
}

var _ RatingRepository = (*PostgresRatingRepository)(nil)

// Create сохраняет оценку
func (r *PostgresRatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}

	query := `
		INSERT INTO ratings (id, tutor_id, student_id, session_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		rating.ID,
		rating.TutorID,
		rating.StudentID,
		rating.SessionID,
		rating.Score,
		rating.Comment,
	).Scan(&rating.CreatedAt)

	if err != nil {
		return fmt.Errorf("create rating: %w", err)
	}

	return nil
}

// AverageByTutor возвращает среднюю оценку учителя
func (r *PostgresRatingRepository) AverageByTutor(ctx context.Context, tutorID string) (float64, error) {
	var avg float64
	err := r.QueryRow(ctx, `SELECT COALESCE(AVG(score), 0)::float8 FROM ratings WHERE tutor_id = $1`, tutorID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("get average rating: %w", err)
	}

	return avg, nil
}
