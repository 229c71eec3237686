package database

import (
	"context"
	"errors"
	"fmt"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

const userFields = `id, username, email, display_name, created_at`

type pgUserRepository struct {
	logger *zap.Logger
}

// NewPgUserRepository creates a PostgreSQL-backed read-only UserRepository.
func NewPgUserRepository(logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{logger: logger.Named("PgUserRepo")}
}

func (r *pgUserRepository) GetByID(ctx context.Context, q interfaces.DBTX, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, q, `SELECT `+userFields+` FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) GetByUsername(ctx context.Context, q interfaces.DBTX, username string) (*models.User, error) {
	return r.get(ctx, q, `SELECT `+userFields+` FROM users WHERE username = $1`, username)
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, q interfaces.DBTX, email string) (*models.User, error) {
	return r.get(ctx, q, `SELECT `+userFields+` FROM users WHERE email = $1`, email)
}

func (r *pgUserRepository) get(ctx context.Context, q interfaces.DBTX, query string, arg any) (*models.User, error) {
	var user models.User
	if err := pgxscan.Get(ctx, q, &user, query, arg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
