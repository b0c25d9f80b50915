package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{Repository: base.NewRepository(pool)}
}

var _ UserRepository = (*PostgresUserRepository)(nil)

const userSelect = `
	SELECT u.id, u.name, u.telegram_id, u.is_tutor, u.created_at,
	       COALESCE(ARRAY_AGG(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN tutor_subjects s ON s.tutor_id = u.id
`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.TelegramID,
		&user.IsTutor,
		&user.CreatedAt,
		&user.Subjects,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт пользователя вместе с его предметами
func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, telegram_id, is_tutor)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, user.ID, user.Name, user.TelegramID, user.IsTutor).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	for _, subject := range user.Subjects {
		_, err = tx.Exec(ctx, `INSERT INTO tutor_subjects (tutor_id, name) VALUES ($1, $2)`, user.ID, subject)
		if err != nil {
			return fmt.Errorf("create tutor subject: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := userSelect + ` WHERE u.id = $1 GROUP BY u.id`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *PostgresUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := userSelect + ` WHERE u.telegram_id = $1 GROUP BY u.id`

	user, err := scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}

	return user, nil
}

// ListTutorsBySubject получает учителей, которые ведут предмет
func (r *PostgresUserRepository) ListTutorsBySubject(ctx context.Context, subject string) ([]*model.User, error) {
	query := userSelect + `
		WHERE u.is_tutor
		  AND EXISTS (
			SELECT 1 FROM tutor_subjects ts
			WHERE ts.tutor_id = u.id AND LOWER(ts.name) = LOWER(TRIM($1))
		  )
		GROUP BY u.id
		ORDER BY u.id
	`

	rows, err := r.Query(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("get tutors by subject: %w", err)
	}

	return base.CollectRows(rows, func(rows pgx.Rows) (*model.User, error) {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		return user, nil
	})
}

// AddSubject отмечает пользователя учителем и добавляет предмет
func (r *PostgresUserRepository) AddSubject(ctx context.Context, userID, subject string) (*model.User, error) {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE users SET is_tutor = TRUE WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("mark user as tutor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tutor_subjects (tutor_id, name)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM tutor_subjects WHERE tutor_id = $1 AND LOWER(name) = LOWER($2)
		)
	`, userID, subject)
	if err != nil {
		return nil, fmt.Errorf("add tutor subject: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return r.GetByID(ctx, userID)
}
