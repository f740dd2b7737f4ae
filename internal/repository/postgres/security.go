package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
)

// CreateSecurityGroup inserts a security group.
func (r *Repository) CreateSecurityGroup(ctx context.Context, group *domain.SecurityGroup) error {
	const query = `INSERT INTO security_groups (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	if _, err := r.pool.Exec(ctx, query, group.ID, group.UserID, group.Name, group.Description, group.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	group.UpdatedAt = group.CreatedAt
	return nil
}

// ListSecurityGroups returns the user's groups, newest first.
func (r *Repository) ListSecurityGroups(ctx context.Context, userID string) ([]domain.SecurityGroup, error) {
	const query = `SELECT id, user_id, name, description, created_at, updated_at
		FROM security_groups WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.SecurityGroup, 0)
	for rows.Next() {
		var g domain.SecurityGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteSecurityGroup removes the rules of a group and then the group in one transaction.
func (r *Repository) DeleteSecurityGroup(ctx context.Context, userID, id string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var owner string
	if err := tx.QueryRow(ctx, `SELECT user_id FROM security_groups WHERE id = $1 FOR UPDATE`, id).Scan(&owner); err != nil {
		return 0, mapReadError(err)
	}
	if owner != userID {
		return 0, repository.ErrNotFound
	}
	rulesTag, err := tx.Exec(ctx, `DELETE FROM security_group_rules WHERE security_group_id = $1`, id)
	if err != nil {
		return 0, err
	}
	groupTag, err := tx.Exec(ctx, `DELETE FROM security_groups WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if groupTag.RowsAffected() == 0 {
		return 0, repository.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return rulesTag.RowsAffected(), nil
}

// CreateSecurityRule inserts a rule under a group owned by the same user.
func (r *Repository) CreateSecurityRule(ctx context.Context, rule *domain.SecurityGroupRule) error {
	const query = `INSERT INTO security_group_rules (id, security_group_id, user_id, rule_type, protocol, port_range, source_destination, description, created_at)
		SELECT $1, g.id, g.user_id, $4, $5, $6, $7, $8, $9
		FROM security_groups g
		WHERE g.id = $2 AND g.user_id = $3`
	tag, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.SecurityGroupID,
		rule.UserID,
		rule.RuleType,
		rule.Protocol,
		rule.PortRange,
		rule.SourceDestination,
		rule.Description,
		rule.CreatedAt,
	)
	if err != nil {
		return mapUpdateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListSecurityRules returns every rule the user owns across all groups.
func (r *Repository) ListSecurityRules(ctx context.Context, userID string) ([]domain.SecurityGroupRule, error) {
	const query = `SELECT id, security_group_id, user_id, rule_type, protocol, port_range, source_destination, description, created_at
		FROM security_group_rules WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.SecurityGroupRule, 0)
	for rows.Next() {
		var rule domain.SecurityGroupRule
		if err := rows.Scan(&rule.ID, &rule.SecurityGroupID, &rule.UserID, &rule.RuleType, &rule.Protocol, &rule.PortRange, &rule.SourceDestination, &rule.Description, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteSecurityRule removes an owned rule.
func (r *Repository) DeleteSecurityRule(ctx context.Context, userID, id string) error {
	return execDelete(ctx, r.pool, `DELETE FROM security_group_rules WHERE id = $1 AND user_id = $2`, id, userID)
}
