package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
)

type pgxBackupCodeRepository struct {
	db *pgxpool.Pool
}

func NewPgxBackupCodeRepository(db *pgxpool.Pool) repository.BackupCodeRepository {
	return &pgxBackupCodeRepository{db: db}
}

func (r *pgxBackupCodeRepository) CreateBatch(ctx context.Context, codes []*models.BackupCode) error {
	batch := &pgx.Batch{}
	for _, code := range codes {
		batch.Queue(
			`INSERT INTO mfa_backup_codes (id, user_id, code_hash, created_at) VALUES ($1, $2, $3, $4)`,
			code.ID, code.UserID, code.CodeHash, code.CreatedAt,
		)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range codes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert backup code batch: %w", err)
		}
	}
	return nil
}

func (r *pgxBackupCodeRepository) ListUnusedByUserID(ctx context.Context, userID uuid.UUID) ([]*models.BackupCode, error) {
	query := `SELECT id, user_id, code_hash, used_at, created_at
		FROM mfa_backup_codes WHERE user_id = $1 AND used_at IS NULL`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.BackupCode
	for rows.Next() {
		code := &models.BackupCode{}
		if err := rows.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.UsedAt, &code.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup codes: %w", err)
	}
	return codes, nil
}

func (r *pgxBackupCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE mfa_backup_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark backup code used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgxBackupCodeRepository) InvalidateAllByUserID(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE mfa_backup_codes SET used_at = $2 WHERE user_id = $1 AND used_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate backup codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgxBackupCodeRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete backup codes: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.BackupCodeRepository = (*pgxBackupCodeRepository)(nil)
