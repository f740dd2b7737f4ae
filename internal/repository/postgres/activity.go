package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nebulacloud/console/internal/domain"
)

// InsertCredit appends a ledger entry.
func (r *Repository) InsertCredit(ctx context.Context, entry *domain.CreditEntry) error {
	const query = `INSERT INTO credits (id, user_id, amount_cents, transaction_type, description, service_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Amount,
		entry.TransactionType,
		entry.Description,
		emptyToNil(entry.ServiceType),
		entry.CreatedAt,
	)
	return mapWriteError(err)
}

// ListCredits returns the user's ledger, newest first.
func (r *Repository) ListCredits(ctx context.Context, userID string) ([]domain.CreditEntry, error) {
	const query = `SELECT id, user_id, amount_cents, transaction_type, description, service_type, created_at
		FROM credits WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CreditEntry, 0)
	for rows.Next() {
		var e domain.CreditEntry
		var service *string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.TransactionType, &e.Description, &service, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ServiceType = nullString(service)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InsertNotification stores a notification addressed to a user.
func (r *Repository) InsertNotification(ctx context.Context, n *domain.Notification) error {
	const query = `INSERT INTO notifications (id, user_id, title, message, type, read, service_type, resource_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		emptyToNil(n.ServiceType),
		emptyToNil(n.ResourceID),
		n.CreatedAt,
	)
	return mapWriteError(err)
}

// ListNotifications returns the user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	const query = `SELECT id, user_id, title, message, type, read, service_type, resource_id, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var service, resource *string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &service, &resource, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ServiceType = nullString(service)
		n.ResourceID = nullString(resource)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead sets read=true. Marking an already-read row is not an error.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 RETURNING id`
	var got string
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&got); err != nil {
		return mapReadError(err)
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of the user.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteNotification removes an owned notification.
func (r *Repository) DeleteNotification(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
}

const pipelineColumns = `id, user_id, name, repository_url, branch, status, last_run_at, created_at, updated_at`

func scanPipeline(row pgx.Row) (domain.Pipeline, error) {
	var p domain.Pipeline
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.RepositoryURL, &p.Branch, &p.Status, &p.LastRunAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePipeline inserts pipeline metadata.
func (r *Repository) CreatePipeline(ctx context.Context, p *domain.Pipeline) error {
	const query = `INSERT INTO pipelines (id, user_id, name, repository_url, branch, status, last_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.UserID, p.Name, p.RepositoryURL, p.Branch, p.Status, timePtrToNil(p.LastRunAt), p.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	p.UpdatedAt = p.CreatedAt
	return nil
}

// ListPipelines returns the user's pipelines, newest first.
func (r *Repository) ListPipelines(ctx context.Context, userID string) ([]domain.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Pipeline, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPipeline fetches one owned pipeline.
func (r *Repository) GetPipeline(ctx context.Context, userID, id string) (*domain.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = $1 AND user_id = $2`
	p, err := scanPipeline(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return &p, nil
}

// UpdatePipelineStatus writes a run/stop transition and stamps last_run_at.
func (r *Repository) UpdatePipelineStatus(ctx context.Context, userID, id, status string, runAt time.Time) (*domain.Pipeline, error) {
	query := `UPDATE pipelines SET status = $3, last_run_at = $4, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING ` + pipelineColumns
	p, err := scanPipeline(r.pool.QueryRow(ctx, query, id, userID, status, runAt.UTC()))
	if err != nil {
		return nil, mapUpdateError(err)
	}
	return &p, nil
}

// DeletePipeline removes an owned pipeline.
func (r *Repository) DeletePipeline(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM pipelines WHERE id = $1 AND user_id = $2`, id, userID)
}
