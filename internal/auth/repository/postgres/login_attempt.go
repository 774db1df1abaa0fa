package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
)

func (r *PostgresRepository) RecordLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, user_id, ip_address, user_agent, success, failure_reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, attempt.ID, attempt.Email, attempt.UserID, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, attempt.FailureReason, attempt.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// CountRecentFailedAttempts counts failures for email at or after since.
func (r *PostgresRepository) CountRecentFailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE email = $1
		  AND success = FALSE
		  AND attempted_at >= $2
	`, email, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed login attempts: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) DeleteLoginAttemptsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
