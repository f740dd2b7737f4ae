package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.ProfileRepository      = (*Repository)(nil)
	_ repository.VPSRepository          = (*Repository)(nil)
	_ repository.DatabaseRepository     = (*Repository)(nil)
	_ repository.BucketRepository       = (*Repository)(nil)
	_ repository.SecurityRepository     = (*Repository)(nil)
	_ repository.CreditRepository       = (*Repository)(nil)
	_ repository.NotificationRepository = (*Repository)(nil)
	_ repository.PipelineRepository     = (*Repository)(nil)
)

// CreateUser inserts a user together with its empty profile.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const userInsert = `INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, userInsert, user.ID, user.Email, user.PasswordHash, user.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	const profileInsert = `INSERT INTO profiles (user_id, created_at, updated_at) VALUES ($1, $2, $2)`
	if _, err := tx.Exec(ctx, profileInsert, user.ID, user.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit(ctx)
}

// GetUserByEmail fetches a user by email, ignoring case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE LOWER(email) = LOWER($1)`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapReadError(err)
	}
	return &u, nil
}

const profileColumns = `user_id, display_name, bio, company, avatar_url, two_factor_enabled, two_factor_secret, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.UserID, &p.DisplayName, &p.Bio, &p.Company, &p.AvatarURL, &p.TwoFactorEnabled, &p.TwoFactorSecret, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapReadError(err)
	}
	return &p, nil
}

// GetProfile returns the profile row for a user.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(r.pool.QueryRow(ctx, query, userID))
}

// UpdateProfile overwrites the editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	query := `UPDATE profiles
		SET display_name = $2, bio = $3, company = $4, avatar_url = $5, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + profileColumns
	row := r.pool.QueryRow(ctx, query, userID, update.DisplayName, update.Bio, update.Company, update.AvatarURL)
	return scanProfile(row)
}

// SetTwoFactor stores the encrypted TOTP secret and enablement flag.
func (r *Repository) SetTwoFactor(ctx context.Context, userID string, secret []byte, enabled bool) error {
	const query = `UPDATE profiles SET two_factor_secret = $2, two_factor_enabled = $3, updated_at = NOW() WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, bytesToNil(secret), enabled)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// mapWriteError converts constraint violations into repository errors.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return repository.ErrNotFound
		case "23505":
			return repository.ErrConflict
		case "23514", "22P02":
			return repository.ErrInvalidArgument
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// mapReadError treats missing rows and malformed identifiers as not found.
func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return repository.ErrNotFound
	}
	return err
}

// mapUpdateError handles UPDATE ... RETURNING statements that may match no owned row.
func mapUpdateError(err error) error {
	if mapped := mapReadError(err); errors.Is(mapped, repository.ErrNotFound) {
		return mapped
	}
	return mapWriteError(err)
}

func execDelete(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return mapReadError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func emptyToNil(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func bytesToNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func timePtrToNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
