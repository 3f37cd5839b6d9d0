package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
)

type pgxVerificationTokenRepository struct {
	db *pgxpool.Pool
}

func NewPgxVerificationTokenRepository(db *pgxpool.Pool) repository.VerificationTokenRepository {
	return &pgxVerificationTokenRepository{db: db}
}

// Create invalidates any outstanding token of the same purpose before
// inserting, inside one transaction, so at most one unused token per
// (user, purpose) exists at a time.
func (r *pgxVerificationTokenRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE verification_tokens SET used_at = now() WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL`,
		token.UserID, token.Purpose,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate outstanding tokens: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO verification_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Purpose, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit verification token: %w", err)
	}
	return nil
}

func (r *pgxVerificationTokenRepository) FindByTokenHash(ctx context.Context, purpose models.VerificationPurpose, tokenHash string) (*models.VerificationToken, error) {
	query := `SELECT id, user_id, purpose, token_hash, expires_at, used_at, created_at
		FROM verification_tokens WHERE purpose = $1 AND token_hash = $2`
	token := &models.VerificationToken{}
	err := r.db.QueryRow(ctx, query, purpose, tokenHash).Scan(
		&token.ID, &token.UserID, &token.Purpose, &token.TokenHash,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}
	return token, nil
}

func (r *pgxVerificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE verification_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark verification token used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxVerificationTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.VerificationTokenRepository = (*pgxVerificationTokenRepository)(nil)
