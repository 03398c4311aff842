package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/service/qualification"
)

// OrderRepo implements qualification.OrderRepository against PostgreSQL.
type OrderRepo struct{ db *sql.DB }

// NewOrderRepo creates a Postgres-backed order repository.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	o := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, COALESCE(name,''), created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.CustomerID, &o.Name, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, qualification.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}
