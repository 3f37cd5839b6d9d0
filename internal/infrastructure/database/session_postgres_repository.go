package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
)

const sessionColumns = `id, user_id, token_hash, user_agent, ip_address, remember,
	expires_at, revoked_at, replaced_by, created_at`

type pgxSessionRepository struct {
	db *pgxpool.Pool
}

func NewPgxSessionRepository(db *pgxpool.Pool) repository.SessionRepository {
	return &pgxSessionRepository{db: db}
}

func (r *pgxSessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, remember, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.TokenHash, session.UserAgent,
		session.IPAddress, session.Remember, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session := &models.Session{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.UserAgent,
		&session.IPAddress, &session.Remember, &session.ExpiresAt,
		&session.RevokedAt, &session.ReplacedBy, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

func (r *pgxSessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(
			&session.ID, &session.UserID, &session.TokenHash, &session.UserAgent,
			&session.IPAddress, &session.Remember, &session.ExpiresAt,
			&session.RevokedAt, &session.ReplacedBy, &session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// Rotate performs the chain-of-custody handover in one transaction. The
// UPDATE is conditional on the stored hash still matching, so concurrent
// rotations racing on the same token serialize on the row: exactly one sees
// RowsAffected()==1 and inserts the successor; the loser gets false back.
func (r *pgxSessionRepository) Rotate(ctx context.Context, oldID uuid.UUID, oldTokenHash string, next *models.Session) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin rotation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE sessions SET revoked_at = now(), replaced_by = $3
		WHERE id = $1 AND token_hash = $2 AND revoked_at IS NULL`,
		oldID, oldTokenHash, next.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to revoke rotated session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, remember, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		next.ID, next.UserID, next.TokenHash, next.UserAgent,
		next.IPAddress, next.Remember, next.ExpiresAt, next.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert successor session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit rotation: %w", err)
	}
	return true, nil
}

func (r *pgxSessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *pgxSessionRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgxSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.SessionRepository = (*pgxSessionRepository)(nil)
