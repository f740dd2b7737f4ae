package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nebulacloud/console/internal/domain"
)

const vpsColumns = `id, user_id, name, instance_type, cpu_cores, ram_gb, storage_gb, region, image, ip_address, monthly_cost_cents, status, created_at, updated_at`

func scanVPS(row pgx.Row) (domain.VPSInstance, error) {
	var v domain.VPSInstance
	var ip *string
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.InstanceType, &v.CPUCores, &v.RAMGB, &v.StorageGB, &v.Region, &v.Image, &ip, &v.MonthlyCost, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	v.IPAddress = nullString(ip)
	return v, err
}

// CreateVPS inserts a VPS instance.
func (r *Repository) CreateVPS(ctx context.Context, vps *domain.VPSInstance) error {
	const query = `INSERT INTO vps_instances (id, user_id, name, instance_type, cpu_cores, ram_gb, storage_gb, region, image, ip_address, monthly_cost_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`
	_, err := r.pool.Exec(ctx, query,
		vps.ID,
		vps.UserID,
		vps.Name,
		vps.InstanceType,
		vps.CPUCores,
		vps.RAMGB,
		vps.StorageGB,
		vps.Region,
		vps.Image,
		emptyToNil(vps.IPAddress),
		vps.MonthlyCost,
		vps.Status,
		vps.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	vps.UpdatedAt = vps.CreatedAt
	return nil
}

// ListVPS returns the user's instances, newest first.
func (r *Repository) ListVPS(ctx context.Context, userID string) ([]domain.VPSInstance, error) {
	query := `SELECT ` + vpsColumns + ` FROM vps_instances WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.VPSInstance, 0)
	for rows.Next() {
		v, err := scanVPS(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVPSStatus writes the status label of an owned instance.
func (r *Repository) UpdateVPSStatus(ctx context.Context, userID, id, status string) (*domain.VPSInstance, error) {
	query := `UPDATE vps_instances SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + vpsColumns
	v, err := scanVPS(r.pool.QueryRow(ctx, query, id, userID, status))
	if err != nil {
		return nil, mapUpdateError(err)
	}
	return &v, nil
}

// DeleteVPS removes an owned instance.
func (r *Repository) DeleteVPS(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM vps_instances WHERE id = $1 AND user_id = $2`, id, userID)
}

const databaseColumns = `id, user_id, name, database_type, version, instance_size, storage_gb, region, status, connection_string, monthly_cost_cents, created_at, updated_at`

func scanDatabase(row pgx.Row) (domain.ManagedDatabase, error) {
	var d domain.ManagedDatabase
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.DatabaseType, &d.Version, &d.InstanceSize, &d.StorageGB, &d.Region, &d.Status, &d.EncryptedConnection, &d.MonthlyCost, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateDatabase inserts a managed database. The connection string must already be encrypted.
func (r *Repository) CreateDatabase(ctx context.Context, db *domain.ManagedDatabase) error {
	const query = `INSERT INTO managed_databases (id, user_id, name, database_type, version, instance_size, storage_gb, region, status, connection_string, monthly_cost_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := r.pool.Exec(ctx, query,
		db.ID,
		db.UserID,
		db.Name,
		db.DatabaseType,
		db.Version,
		db.InstanceSize,
		db.StorageGB,
		db.Region,
		db.Status,
		bytesToNil(db.EncryptedConnection),
		db.MonthlyCost,
		db.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	db.UpdatedAt = db.CreatedAt
	return nil
}

// ListDatabases returns the user's databases, newest first.
func (r *Repository) ListDatabases(ctx context.Context, userID string) ([]domain.ManagedDatabase, error) {
	query := `SELECT ` + databaseColumns + ` FROM managed_databases WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ManagedDatabase, 0)
	for rows.Next() {
		d, err := scanDatabase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDatabaseStatus writes the status label of an owned database.
func (r *Repository) UpdateDatabaseStatus(ctx context.Context, userID, id, status string) (*domain.ManagedDatabase, error) {
	query := `UPDATE managed_databases SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + databaseColumns
	d, err := scanDatabase(r.pool.QueryRow(ctx, query, id, userID, status))
	if err != nil {
		return nil, mapUpdateError(err)
	}
	return &d, nil
}

// DeleteDatabase removes an owned database.
func (r *Repository) DeleteDatabase(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM managed_databases WHERE id = $1 AND user_id = $2`, id, userID)
}

const bucketColumns = `id, user_id, name, region, public_access, file_count, size_bytes, monthly_cost_cents, created_at, updated_at`

func scanBucket(row pgx.Row) (domain.StorageBucket, error) {
	var b domain.StorageBucket
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Region, &b.PublicAccess, &b.FileCount, &b.SizeBytes, &b.MonthlyCost, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBucket inserts a storage bucket.
func (r *Repository) CreateBucket(ctx context.Context, bucket *domain.StorageBucket) error {
	const query = `INSERT INTO storage_buckets (id, user_id, name, region, public_access, file_count, size_bytes, monthly_cost_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.pool.Exec(ctx, query,
		bucket.ID,
		bucket.UserID,
		bucket.Name,
		bucket.Region,
		bucket.PublicAccess,
		bucket.FileCount,
		bucket.SizeBytes,
		bucket.MonthlyCost,
		bucket.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	bucket.UpdatedAt = bucket.CreatedAt
	return nil
}

// ListBuckets returns the user's buckets, newest first.
func (r *Repository) ListBuckets(ctx context.Context, userID string) ([]domain.StorageBucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM storage_buckets WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StorageBucket, 0)
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBucket fetches one owned bucket.
func (r *Repository) GetBucket(ctx context.Context, userID, id string) (*domain.StorageBucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM storage_buckets WHERE id = $1 AND user_id = $2`
	b, err := scanBucket(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return &b, nil
}

// DeleteBucket removes an owned bucket.
func (r *Repository) DeleteBucket(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM storage_buckets WHERE id = $1 AND user_id = $2`, id, userID)
}
