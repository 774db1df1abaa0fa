package postgres

import (
	"context"
	"errors"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the repository needs. pgxmock pools
// satisfy it as well.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository implements the user, login attempt, refresh token and
// organization stores over a single pool.
type PostgresRepository struct {
	db DB
}

var (
	_ domain.UserRepository         = (*PostgresRepository)(nil)
	_ domain.LoginAttemptRepository = (*PostgresRepository)(nil)
	_ domain.RefreshTokenRepository = (*PostgresRepository)(nil)
	_ domain.OrganizationRepository = (*PostgresRepository)(nil)
)

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
