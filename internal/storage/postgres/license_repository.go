package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/ierr"
	"go.uber.org/zap"
)

type LicenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLicenseRepository(db *pgxpool.Pool, logger *zap.Logger) *LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger.Named("LicenseRepository"),
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

const licenseColumns = `id, code, type, device_id, email, activated_at, expires_at, created_at, updated_at`

func (r *LicenseRepository) Create(ctx context.Context, lic *license.License) (uuid.UUID, error) {
	query := `
        INSERT INTO licenses (code, type, device_id, email, activated_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		lic.Code,
		lic.Type,
		lic.DeviceID,
		lic.Email,
		lic.ActivatedAt,
		lic.ExpiresAt,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create license with duplicate code",
				zap.String("code", lic.Code),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, ierr.ErrCodeExists
		}

		r.logger.Error("Failed to create license in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create license: %w", err)
	}

	r.logger.Info("License created", zap.String("id", insertedID.String()), zap.String("type", string(lic.Type)))
	return insertedID, nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	return r.scanLicense(row)
}

func (r *LicenseRepository) FindByCode(ctx context.Context, code string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE code = $1`

	row := r.db.QueryRow(ctx, query, code)
	return r.scanLicense(row)
}

func (r *LicenseRepository) FindTrialByDevice(ctx context.Context, deviceID string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE device_id = $1 AND type = 'trial' LIMIT 1`

	row := r.db.QueryRow(ctx, query, deviceID)
	return r.scanLicense(row)
}

// ClaimDevice performs the first-activation binding as a single conditional
// update so two concurrent claims for the same code cannot both win.
func (r *LicenseRepository) ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, activatedAt time.Time) (bool, error) {
	query := `
        UPDATE licenses
        SET device_id = $1, activated_at = $2
        WHERE id = $3 AND device_id IS NULL
    `

	cmdTag, err := r.db.Exec(ctx, query, deviceID, activatedAt, id)
	if err != nil {
		r.logger.Error("Failed to claim device for license", zap.String("id", id.String()), zap.Error(err))
		return false, fmt.Errorf("database error on claim device: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

// SetTrialExpiry stamps the trial expiry once. The WHERE clause keeps a
// concurrent re-activation from extending an already stamped expiry.
func (r *LicenseRepository) SetTrialExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	query := `
        UPDATE licenses
        SET expires_at = $1
        WHERE id = $2 AND expires_at IS NULL
    `

	cmdTag, err := r.db.Exec(ctx, query, expiresAt, id)
	if err != nil {
		r.logger.Error("Failed to set trial expiry", zap.String("id", id.String()), zap.Error(err))
		return false, fmt.Errorf("database error on set trial expiry: %w", err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (r *LicenseRepository) List(ctx context.Context, params license.ListParams) ([]*license.License, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if params.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, *params.Type)
		argPos++
	}
	if params.Email != nil {
		where += fmt.Sprintf(" AND email = $%d", argPos)
		args = append(args, *params.Email)
		argPos++
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM licenses"+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on count licenses: %w", err)
	}

	sortBy := "created_at"
	switch params.SortBy {
	case "code", "type", "activated_at", "expires_at", "created_at":
		sortBy = params.SortBy
	}
	sortOrder := "DESC"
	if params.SortOrder == "ASC" {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM licenses%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		licenseColumns, where, sortBy, sortOrder, argPos, argPos+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query list of licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*license.License, 0)

	for rows.Next() {
		var lic license.License
		if err := scanLicenseFields(rows, &lic); err != nil {
			r.logger.Error("Failed to scan license row during list", zap.Error(err))
			return nil, 0, fmt.Errorf("database scan error during list: %w", err)
		}
		licenses = append(licenses, &lic)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating license rows", zap.Error(err))
		return nil, 0, fmt.Errorf("database iteration error on list licenses: %w", err)
	}

	return licenses, total, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete license", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on delete license: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrNotFound
	}

	r.logger.Info("License deleted", zap.String("id", id.String()))
	return nil
}

func (r *LicenseRepository) DeleteExpiredTrialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM licenses WHERE type = 'trial' AND expires_at IS NOT NULL AND expires_at < $1`

	cmdTag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete expired trials", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("database error on delete expired trials: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

func (r *LicenseRepository) GetSummary(ctx context.Context) (*license.Summary, error) {
	summary := &license.Summary{
		TypeCounts: make(map[license.LicenseType]int64),
	}

	rows, err := r.db.Query(ctx, `SELECT type, count(*) FROM licenses GROUP BY type`)
	if err != nil {
		r.logger.Error("Failed to query license summary", zap.Error(err))
		return nil, fmt.Errorf("database error on license summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t license.LicenseType
		var count int64
		if err := rows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("database scan error on license summary: %w", err)
		}
		summary.TypeCounts[t] = count
		summary.Total += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on license summary: %w", err)
	}

	query := `
        SELECT
            count(*) FILTER (WHERE expires_at IS NULL OR expires_at >= now()),
            count(*) FILTER (WHERE expires_at IS NOT NULL AND expires_at < now())
        FROM licenses WHERE type = 'trial'
    `
	if err := r.db.QueryRow(ctx, query).Scan(&summary.ActiveTrials, &summary.ExpiredTrials); err != nil {
		r.logger.Error("Failed to query trial summary", zap.Error(err))
		return nil, fmt.Errorf("database error on trial summary: %w", err)
	}

	return summary, nil
}

func (r *LicenseRepository) scanLicense(row pgx.Row) (*license.License, error) {
	var lic license.License
	err := scanLicenseFields(row, &lic)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		r.logger.Error("Failed to scan license row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &lic, nil
}

func scanLicenseFields(row pgx.Row, lic *license.License) error {
	return row.Scan(
		&lic.ID,
		&lic.Code,
		&lic.Type,
		&lic.DeviceID,
		&lic.Email,
		&lic.ActivatedAt,
		&lic.ExpiresAt,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)
}
