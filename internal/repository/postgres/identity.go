package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/audience-report/internal/criteria"
	"github.com/ignite/audience-report/internal/service/qualification"
)

// IdentityRepo implements qualification.IdentityRepository against PostgreSQL.
// Profile attributes live in a JSONB column and are addressed per-field; the
// typed exclusion criteria are translated to SQL here.
type IdentityRepo struct{ db *sql.DB }

// NewIdentityRepo creates a Postgres-backed identity repository.
func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{db: db} }

// buildWhere translates an IdentityCriteria into a conjoined WHERE clause
// with numbered placeholders starting at $1.
func buildWhere(c qualification.IdentityCriteria) (string, []interface{}, error) {
	conds := []string{"entity = ANY($1)", "inactive = FALSE"}
	args := []interface{}{pq.Array(c.Entities)}
	idx := 2

	nextArg := func(value interface{}) string {
		args = append(args, value)
		placeholder := fmt.Sprintf("$%d", idx)
		idx++
		return placeholder
	}

	conds = append(conds, fmt.Sprintf("NOT (inactive_customer_ids && %s)", nextArg(pq.Array(c.CustomerIDs))))
	conds = append(conds, fmt.Sprintf("NOT (inactive_line_item_ids && %s)", nextArg(pq.Array([]string{c.LineItemID}))))

	if len(c.ExcludedDomains) > 0 {
		conds = append(conds, fmt.Sprintf("email_domain <> ALL(%s)", nextArg(pq.Array(c.ExcludedDomains))))
	}

	for _, cond := range c.Conditions {
		field := fmt.Sprintf("COALESCE(attributes->>'%s','')", cond.Field)
		switch cond.Op {
		case criteria.OpNotRegexAny:
			for _, pattern := range cond.Patterns {
				conds = append(conds, fmt.Sprintf("%s !~* %s", field, nextArg(pattern)))
			}
		case criteria.OpNotEmpty:
			conds = append(conds, fmt.Sprintf("%s <> ''", field))
		default:
			return "", nil, fmt.Errorf("unsupported criteria operator: %s", cond.Op)
		}
	}

	return strings.Join(conds, "\n  AND "), args, nil
}

func (r *IdentityRepo) CountMatching(ctx context.Context, c qualification.IdentityCriteria) (int, error) {
	where, args, err := buildWhere(c)
	if err != nil {
		return 0, err
	}
	var count int
	q := "SELECT COUNT(*) FROM identities\nWHERE " + where
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

func (r *IdentityRepo) FindEntities(ctx context.Context, c qualification.IdentityCriteria, limit int) ([]string, error) {
	where, args, err := buildWhere(c)
	if err != nil {
		return nil, err
	}
	q := "SELECT entity FROM identities\nWHERE " + where
	if limit > 0 {
		q += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find identities: %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *IdentityRepo) DistinctInactiveEntities(ctx context.Context, q qualification.InactiveQuery) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT entity
		FROM identities
		WHERE entity = ANY($1)
		  AND (inactive
		       OR inactive_customer_ids && $2
		       OR inactive_line_item_ids && $3)
	`, pq.Array(q.Entities), pq.Array(q.CustomerIDs), pq.Array([]string{q.LineItemID}))
	if err != nil {
		return nil, fmt.Errorf("find inactive identities: %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("scan inactive identity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *IdentityRepo) SetActivation(ctx context.Context, identityID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities SET inactive = $2 WHERE id = $1
	`, identityID, !active)
	if err != nil {
		return fmt.Errorf("set identity activation: %w", err)
	}
	return checkFound(res)
}

func (r *IdentityRepo) SetCustomerActivation(ctx context.Context, identityID, customerID string, active bool) error {
	return r.toggleScope(ctx, "inactive_customer_ids", identityID, customerID, active)
}

func (r *IdentityRepo) SetLineItemActivation(ctx context.Context, identityID, lineItemID string, active bool) error {
	return r.toggleScope(ctx, "inactive_line_item_ids", identityID, lineItemID, active)
}

// toggleScope adds (active=false) or removes (active=true) a scope id from
// the named opt-out array. Both directions are idempotent.
func (r *IdentityRepo) toggleScope(ctx context.Context, column, identityID, scopeID string, active bool) error {
	var q string
	if active {
		q = fmt.Sprintf(`UPDATE identities SET %s = array_remove(%s, $2) WHERE id = $1`, column, column)
	} else {
		q = fmt.Sprintf(`
			UPDATE identities
			SET %s = CASE WHEN $2 = ANY(%s) THEN %s ELSE array_append(%s, $2) END
			WHERE id = $1
		`, column, column, column, column)
	}
	res, err := r.db.ExecContext(ctx, q, identityID, scopeID)
	if err != nil {
		return fmt.Errorf("toggle %s: %w", column, err)
	}
	return checkFound(res)
}

func checkFound(res sql.Result) error {
	n, _ := res.RowsAffected()
	if n == 0 {
		return qualification.ErrIdentityNotFound
	}
	return nil
}
