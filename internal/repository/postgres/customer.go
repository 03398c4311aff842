package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/service/qualification"
)

// CustomerRepo implements qualification.CustomerRepository against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) Get(ctx context.Context, id string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(parent_id,''), COALESCE(name,''), deleted
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ParentID, &c.Name, &c.Deleted)
	if err == sql.ErrNoRows {
		return nil, qualification.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM customers
		WHERE parent_id = $1 AND NOT deleted
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child customers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child customer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
