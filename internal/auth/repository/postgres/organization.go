package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.QueryRow(ctx, `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}
