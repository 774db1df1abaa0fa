package postgres_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	repo "github.com/AnthoniusHendriyanto/auth-core/internal/auth/repository/postgres"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refreshTokenColumns = []string{
	"id", "user_id", "jti", "token_hash", "device_id", "ip_address", "user_agent",
	"expires_at", "revoked_at", "revoked_reason", "replaced_by_jti", "created_at",
}

func refreshTokenRow(rows *pgxmock.Rows, rt *domain.RefreshToken) *pgxmock.Rows {
	return rows.AddRow(
		rt.ID, rt.UserID, rt.JTI, rt.TokenHash, rt.DeviceID, rt.IPAddress, rt.UserAgent,
		rt.ExpiresAt, rt.RevokedAt, rt.RevokedReason, rt.ReplacedByJTI, rt.CreatedAt,
	)
}

func sampleToken(jti string) *domain.RefreshToken {
	ua := "Go-http-client/1.1"
	return &domain.RefreshToken{
		ID:        "rt-" + jti,
		UserID:    "user-123",
		JTI:       jti,
		TokenHash: "hash-" + jti,
		IPAddress: "127.0.0.1",
		UserAgent: &ua,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		CreatedAt: time.Now(),
	}
}

func insertArgs(rt *domain.RefreshToken) []any {
	return []any{rt.ID, rt.UserID, rt.JTI, rt.TokenHash, rt.DeviceID, rt.IPAddress, rt.UserAgent, rt.ExpiresAt, rt.CreatedAt}
}

// TestStoreRefreshToken covers the StoreRefreshToken method.
func TestStoreRefreshToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	ctx := context.Background()
	rt := sampleToken("jti-1")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(insertArgs(rt)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, r.StoreRefreshToken(ctx, rt))
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(insertArgs(rt)...).
			WillReturnError(fmt.Errorf("db error"))

		assert.Error(t, r.StoreRefreshToken(ctx, rt))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGetRefreshTokenByJTI covers the GetRefreshTokenByJTI method.
func TestGetRefreshTokenByJTI(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	ctx := context.Background()

	t.Run("revoked token", func(t *testing.T) {
		rt := sampleToken("jti-1")
		revokedAt := time.Now()
		reason := authconstant.RevokedReasonRotation
		next := "jti-2"
		rt.RevokedAt, rt.RevokedReason, rt.ReplacedByJTI = &revokedAt, &reason, &next

		mock.ExpectQuery("SELECT id, user_id, jti").
			WithArgs("jti-1").
			WillReturnRows(refreshTokenRow(pgxmock.NewRows(refreshTokenColumns), rt))

		got, err := r.GetRefreshTokenByJTI(ctx, "jti-1")
		require.NoError(t, err)
		assert.Equal(t, "hash-jti-1", got.TokenHash)
		assert.True(t, got.IsRevoked())
		assert.Equal(t, "jti-2", *got.ReplacedByJTI)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, jti").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		got, err := r.GetRefreshTokenByJTI(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("database error", func(t *testing.T) {
		dbErr := fmt.Errorf("db scan error")
		mock.ExpectQuery("SELECT id, user_id, jti").
			WithArgs("jti-1").
			WillReturnError(dbErr)

		got, err := r.GetRefreshTokenByJTI(ctx, "jti-1")
		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, got)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGetActiveRefreshTokensByUserID covers the session listing query.
func TestGetActiveRefreshTokensByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	now := time.Now()

	rows := pgxmock.NewRows(refreshTokenColumns)
	refreshTokenRow(rows, sampleToken("jti-2"))
	refreshTokenRow(rows, sampleToken("jti-1"))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2")).
		WithArgs("user-123", now).
		WillReturnRows(rows)

	tokens, err := r.GetActiveRefreshTokensByUserID(context.Background(), "user-123", now)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "jti-2", tokens[0].JTI)
	assert.Equal(t, "jti-1", tokens[1].JTI)

	mock.ExpectQuery("FROM refresh_tokens").
		WithArgs("user-123", now).
		WillReturnError(fmt.Errorf("db error"))

	_, err = r.GetActiveRefreshTokensByUserID(context.Background(), "user-123", now)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRevokeRefreshToken covers the conditional revoke.
func TestRevokeRefreshToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	ctx := context.Background()

	t.Run("live token", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("WHERE jti = $1 AND revoked_at IS NULL")).
			WithArgs("jti-1", authconstant.RevokedReasonLogout, (*string)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		revoked, err := r.RevokeRefreshToken(ctx, "jti-1", authconstant.RevokedReasonLogout, nil)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("already revoked", func(t *testing.T) {
		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("jti-1", authconstant.RevokedReasonLogout, (*string)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		revoked, err := r.RevokeRefreshToken(ctx, "jti-1", authconstant.RevokedReasonLogout, nil)
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRotateRefreshToken covers the transactional rotation.
func TestRotateRefreshToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	ctx := context.Background()
	next := sampleToken("jti-2")

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("jti-1", authconstant.RevokedReasonRotation, "jti-2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(insertArgs(next)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		rotated, err := r.RotateRefreshToken(ctx, "jti-1", next)
		require.NoError(t, err)
		assert.True(t, rotated)
	})

	t.Run("lost race", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("jti-1", authconstant.RevokedReasonRotation, "jti-2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		rotated, err := r.RotateRefreshToken(ctx, "jti-1", next)
		require.NoError(t, err)
		assert.False(t, rotated)
	})

	t.Run("insert fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE refresh_tokens").
			WithArgs("jti-1", authconstant.RevokedReasonRotation, "jti-2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO refresh_tokens").
			WithArgs(insertArgs(next)...).
			WillReturnError(fmt.Errorf("duplicate jti"))
		mock.ExpectRollback()

		rotated, err := r.RotateRefreshToken(ctx, "jti-1", next)
		assert.Error(t, err)
		assert.False(t, rotated)
	})

	t.Run("begin fails", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(fmt.Errorf("pool closed"))

		_, err := r.RotateRefreshToken(ctx, "jti-1", next)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRevokeAllRefreshTokensByUserID tests the family revocation.
func TestRevokeAllRefreshTokensByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND revoked_at IS NULL")).
		WithArgs("user-123", authconstant.RevokedReasonReuseDetected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 5))

	n, err := r.RevokeAllRefreshTokensByUserID(ctx, "user-123", authconstant.RevokedReasonReuseDetected)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs("user-123", authconstant.RevokedReasonReuseDetected).
		WillReturnError(fmt.Errorf("db error"))

	_, err = r.RevokeAllRefreshTokensByUserID(ctx, "user-123", authconstant.RevokedReasonReuseDetected)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPruneOldestRefreshTokens covers family-size pruning.
func TestPruneOldestRefreshTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("user-123", 10, now).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := r.PruneOldestRefreshTokens(context.Background(), "user-123", 10, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDeleteExpiredRefreshTokens covers the maintenance purge.
func TestDeleteExpiredRefreshTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := r.DeleteExpiredRefreshTokens(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
