package domain

// Customer is a hierarchical account. Children reference their parent via
// ParentID; targeting scope always widens to the root customer plus its
// direct, non-deleted children.
type Customer struct {
	ID       string `json:"id" db:"id"`
	ParentID string `json:"parent_id" db:"parent_id"`
	Name     string `json:"name" db:"name"`
	Deleted  bool   `json:"deleted" db:"deleted"`
}
