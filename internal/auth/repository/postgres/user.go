package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, full_name, organization_id, password_hash, is_active, email_verified,
	login_attempts, is_locked, locked_until, roles, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.OrganizationID, &u.PasswordHash, &u.IsActive, &u.EmailVerified,
		&u.LoginAttempts, &u.IsLocked, &u.LockedUntil, &u.Roles, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
		LIMIT 1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, full_name, organization_id, password_hash, is_active, email_verified,
			login_attempts, is_locked, locked_until, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, user.ID, user.Email, user.FullName, user.OrganizationID, user.PasswordHash, user.IsActive, user.EmailVerified,
		user.LoginAttempts, user.IsLocked, user.LockedUntil, user.Roles, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return autherror.ErrEmailAlreadyInUse
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update writes only the fields set on update. It returns ErrUserNotFound
// when no row matched.
func (r *PostgresRepository) Update(ctx context.Context, id string, update domain.UserUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	if update.EmailVerified != nil {
		set("email_verified", *update.EmailVerified)
	}
	if update.LoginAttempts != nil {
		set("login_attempts", *update.LoginAttempts)
	}
	if update.IsLocked != nil {
		set("is_locked", *update.IsLocked)
	}
	if update.ClearLockedUntil {
		sets = append(sets, "locked_until = NULL")
	} else if update.LockedUntil != nil {
		set("locked_until", *update.LockedUntil)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
