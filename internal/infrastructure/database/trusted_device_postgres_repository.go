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

const deviceColumns = `id, user_id, token_hash, fingerprint_hash, created_at,
	last_used_at, expires_at, revoked_at`

type pgxTrustedDeviceRepository struct {
	db *pgxpool.Pool
}

func NewPgxTrustedDeviceRepository(db *pgxpool.Pool) repository.TrustedDeviceRepository {
	return &pgxTrustedDeviceRepository{db: db}
}

func (r *pgxTrustedDeviceRepository) Create(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (id, user_id, token_hash, fingerprint_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		device.ID, device.UserID, device.TokenHash, device.FingerprintHash,
		device.CreatedAt, device.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trusted device: %w", err)
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TrustedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM trusted_devices WHERE id = $1`
	device := &models.TrustedDevice{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&device.ID, &device.UserID, &device.TokenHash, &device.FingerprintHash,
		&device.CreatedAt, &device.LastUsedAt, &device.ExpiresAt, &device.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to find trusted device: %w", err)
	}
	return device, nil
}

func (r *pgxTrustedDeviceRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TrustedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM trusted_devices
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.TrustedDevice
	for rows.Next() {
		device := &models.TrustedDevice{}
		if err := rows.Scan(
			&device.ID, &device.UserID, &device.TokenHash, &device.FingerprintHash,
			&device.CreatedAt, &device.LastUsedAt, &device.ExpiresAt, &device.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted devices: %w", err)
	}
	return devices, nil
}

func (r *pgxTrustedDeviceRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE trusted_devices SET last_used_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch trusted device: %w", err)
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE trusted_devices SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke trusted device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrDeviceNotFound
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE trusted_devices SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke trusted devices for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.TrustedDeviceRepository = (*pgxTrustedDeviceRepository)(nil)
