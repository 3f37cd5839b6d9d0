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

type pgxMFAEnrollmentChallengeRepository struct {
	db *pgxpool.Pool
}

func NewPgxMFAEnrollmentChallengeRepository(db *pgxpool.Pool) repository.MFAEnrollmentChallengeRepository {
	return &pgxMFAEnrollmentChallengeRepository{db: db}
}

func (r *pgxMFAEnrollmentChallengeRepository) Create(ctx context.Context, challenge *models.MFAEnrollmentChallenge) error {
	query := `
		INSERT INTO mfa_enrollment_challenges (id, user_id, secret_encrypted, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query,
		challenge.ID, challenge.UserID, challenge.SecretEncrypted,
		challenge.ExpiresAt, challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enrollment challenge: %w", err)
	}
	return nil
}

func (r *pgxMFAEnrollmentChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MFAEnrollmentChallenge, error) {
	query := `SELECT id, user_id, secret_encrypted, expires_at, consumed_at, created_at
		FROM mfa_enrollment_challenges WHERE id = $1`
	challenge := &models.MFAEnrollmentChallenge{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&challenge.ID, &challenge.UserID, &challenge.SecretEncrypted,
		&challenge.ExpiresAt, &challenge.ConsumedAt, &challenge.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find enrollment challenge: %w", err)
	}
	return challenge, nil
}

func (r *pgxMFAEnrollmentChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE mfa_enrollment_challenges SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to consume enrollment challenge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxMFAEnrollmentChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM mfa_enrollment_challenges WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired enrollment challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgxMFALoginChallengeRepository struct {
	db *pgxpool.Pool
}

func NewPgxMFALoginChallengeRepository(db *pgxpool.Pool) repository.MFALoginChallengeRepository {
	return &pgxMFALoginChallengeRepository{db: db}
}

func (r *pgxMFALoginChallengeRepository) Create(ctx context.Context, challenge *models.MFALoginChallenge) error {
	query := `
		INSERT INTO mfa_login_challenges (id, user_id, remember, user_agent, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		challenge.ID, challenge.UserID, challenge.Remember, challenge.UserAgent,
		challenge.IPAddress, challenge.ExpiresAt, challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login challenge: %w", err)
	}
	return nil
}

func (r *pgxMFALoginChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MFALoginChallenge, error) {
	query := `SELECT id, user_id, remember, user_agent, ip_address, expires_at, consumed_at, created_at
		FROM mfa_login_challenges WHERE id = $1`
	challenge := &models.MFALoginChallenge{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&challenge.ID, &challenge.UserID, &challenge.Remember, &challenge.UserAgent,
		&challenge.IPAddress, &challenge.ExpiresAt, &challenge.ConsumedAt, &challenge.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find login challenge: %w", err)
	}
	return challenge, nil
}

func (r *pgxMFALoginChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE mfa_login_challenges SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to consume login challenge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxMFALoginChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM mfa_login_challenges WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ repository.MFAEnrollmentChallengeRepository = (*pgxMFAEnrollmentChallengeRepository)(nil)
	_ repository.MFALoginChallengeRepository      = (*pgxMFALoginChallengeRepository)(nil)
)
