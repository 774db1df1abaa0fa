package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/jackc/pgx/v5"
)

const refreshTokenColumns = `id, user_id, jti, token_hash, device_id, ip_address, user_agent,
	expires_at, revoked_at, revoked_reason, replaced_by_jti, created_at`

const insertRefreshToken = `
	INSERT INTO refresh_tokens (id, user_id, jti, token_hash, device_id, ip_address, user_agent, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// revokeRefreshToken only touches a row that is still live, which is what
// makes rotation and logout race safe.
const revokeRefreshToken = `
	UPDATE refresh_tokens
	SET revoked_at = now(), revoked_reason = $2, replaced_by_jti = $3
	WHERE jti = $1 AND revoked_at IS NULL`

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := row.Scan(
		&rt.ID, &rt.UserID, &rt.JTI, &rt.TokenHash, &rt.DeviceID, &rt.IPAddress, &rt.UserAgent,
		&rt.ExpiresAt, &rt.RevokedAt, &rt.RevokedReason, &rt.ReplacedByJTI, &rt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func refreshTokenArgs(rt *domain.RefreshToken) []any {
	return []any{rt.ID, rt.UserID, rt.JTI, rt.TokenHash, rt.DeviceID, rt.IPAddress, rt.UserAgent, rt.ExpiresAt, rt.CreatedAt}
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	if _, err := r.db.Exec(ctx, insertRefreshToken, refreshTokenArgs(rt)...); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetRefreshTokenByJTI(ctx context.Context, jti string) (*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE jti = $1`

	rt, err := scanRefreshToken(r.db.QueryRow(ctx, query, jti))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return rt, nil
}

// GetActiveRefreshTokensByUserID returns unrevoked, unexpired tokens, newest first.
func (r *PostgresRepository) GetActiveRefreshTokensByUserID(ctx context.Context, userID string, now time.Time) ([]*domain.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.RefreshToken
	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	return tokens, nil
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, jti, reason string, replacedByJTI *string) (bool, error) {
	tag, err := r.db.Exec(ctx, revokeRefreshToken, jti, reason, replacedByJTI)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, oldJTI string, next *domain.RefreshToken) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin rotation: %w", err)
	}

	tag, err := tx.Exec(ctx, revokeRefreshToken, oldJTI, authconstant.RevokedReasonRotation, next.JTI)
	if err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("failed to revoke rotated refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertRefreshToken, refreshTokenArgs(next)...); err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("failed to store rotated refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit rotation: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) RevokeAllRefreshTokensByUserID(ctx context.Context, userID, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now(), revoked_reason = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PruneOldestRefreshTokens deletes the user's active tokens beyond the keep
// newest ones.
func (r *PostgresRepository) PruneOldestRefreshTokens(ctx context.Context, userID string, keep int, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $3
			ORDER BY created_at DESC, id DESC
			OFFSET $2
		)
	`, userID, keep, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
