package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/service/qualification"
)

// DeploymentURLRepo implements qualification.DeploymentURLRepository against
// the denormalized deployment_urls view.
type DeploymentURLRepo struct{ db *sql.DB }

// NewDeploymentURLRepo creates a Postgres-backed deployment-url repository.
func NewDeploymentURLRepo(db *sql.DB) *DeploymentURLRepo { return &DeploymentURLRepo{db: db} }

func (r *DeploymentURLRepo) Find(ctx context.Context, f qualification.DeploymentURLFilter) ([]domain.DeploymentURL, error) {
	conds := []string{"(customer_id = ANY($1) OR host_customer_id = ANY($1))"}
	args := []interface{}{pq.Array(f.CustomerIDs)}
	idx := 2

	if len(f.TagIDs) > 0 {
		conds = append(conds, fmt.Sprintf("(tag_ids && $%d OR host_tag_ids && $%d)", idx, idx))
		args = append(args, pq.Array(f.TagIDs))
		idx++
	}
	if len(f.ExcludedTagIDs) > 0 {
		conds = append(conds, fmt.Sprintf("NOT (tag_ids && $%d) AND NOT (host_tag_ids && $%d)", idx, idx))
		args = append(args, pq.Array(f.ExcludedTagIDs))
		idx++
	}

	conds = append(conds, fmt.Sprintf("link_type = ANY($%d)", idx))
	args = append(args, pq.Array(f.LinkTypes))
	idx++

	conds = append(conds, fmt.Sprintf("deployment_sent_date >= $%d AND deployment_sent_date <= $%d", idx, idx+1))
	args = append(args, f.Window.Start, f.Window.End)

	q := `
		SELECT id, url_id, link_type,
		       COALESCE(customer_id,''), tag_ids,
		       COALESCE(host_customer_id,''), host_tag_ids,
		       deployment_entity, COALESCE(deployment_status,''), deployment_sent_date
		FROM deployment_urls
		WHERE ` + strings.Join(conds, "\n  AND ")
	if f.SortBySentDate {
		q += "\nORDER BY deployment_sent_date ASC"
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find deployment urls: %w", err)
	}
	defer rows.Close()

	var out []domain.DeploymentURL
	for rows.Next() {
		var du domain.DeploymentURL
		if err := rows.Scan(
			&du.ID, &du.URLID, &du.LinkType,
			&du.CustomerID, pq.Array(&du.TagIDs),
			&du.HostCustomerID, pq.Array(&du.HostTagIDs),
			&du.DeploymentEntity, &du.DeploymentStatus, &du.DeploymentSentDate,
		); err != nil {
			return nil, fmt.Errorf("scan deployment url: %w", err)
		}
		out = append(out, du)
	}
	return out, rows.Err()
}
