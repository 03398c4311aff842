package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/service/qualification"
)

// ClickRepo implements qualification.ClickRepository against PostgreSQL.
type ClickRepo struct{ db *sql.DB }

// NewClickRepo creates a Postgres-backed click-event repository.
func NewClickRepo(db *sql.DB) *ClickRepo { return &ClickRepo{db: db} }

func (r *ClickRepo) DistinctIdentityEntities(ctx context.Context, w qualification.ClickWindow) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT identity_entity
		FROM click_events
		WHERE url_id = ANY($1)
		  AND deployment_entity = ANY($2)
		  AND event_date >= $3 AND event_date <= $4
	`, pq.Array(w.URLIDs), pq.Array(w.DeploymentEntities), w.Window.Start, w.Window.End)
	if err != nil {
		return nil, fmt.Errorf("distinct click identities: %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("scan click identity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *ClickRepo) AggregateByIdentity(ctx context.Context, spec *qualification.ExportSpec) ([]domain.IdentityClicks, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT identity_entity,
		       array_agg(DISTINCT url_id),
		       array_agg(DISTINCT deployment_entity),
		       SUM(n + COALESCE(cardinality(guids), 0))::int
		FROM click_events
		WHERE identity_entity = ANY($1)
		  AND url_id = ANY($2)
		  AND deployment_entity = ANY($3)
		  AND event_date >= $4 AND event_date <= $5
		GROUP BY identity_entity
	`, pq.Array(spec.IdentityEntities), pq.Array(spec.URLIDs), pq.Array(spec.DeploymentEntities),
		spec.Window.Start, spec.Window.End)
	if err != nil {
		return nil, fmt.Errorf("aggregate clicks: %w", err)
	}
	defer rows.Close()

	var out []domain.IdentityClicks
	for rows.Next() {
		var ic domain.IdentityClicks
		if err := rows.Scan(
			&ic.IdentityEntity,
			pq.Array(&ic.URLIDs),
			pq.Array(&ic.DeploymentEntities),
			&ic.Clicks,
		); err != nil {
			return nil, fmt.Errorf("scan click aggregation: %w", err)
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}
