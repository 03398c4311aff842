package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ExcludedDomainRepo implements qualification.ExcludedDomainRepository
// against PostgreSQL.
type ExcludedDomainRepo struct{ db *sql.DB }

// NewExcludedDomainRepo creates a Postgres-backed excluded-domain repository.
func NewExcludedDomainRepo(db *sql.DB) *ExcludedDomainRepo { return &ExcludedDomainRepo{db: db} }

func (r *ExcludedDomainRepo) DistinctDomains(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT domain FROM excluded_email_domains`)
	if err != nil {
		return nil, fmt.Errorf("distinct excluded domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan excluded domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}
