package domain

import "time"

// Link types carried on tracked URLs. Values come from the upstream URL
// extraction pipeline.
const (
	LinkTypeNotSet      = "(Not Set)"
	LinkTypeAdvertising = "Advertising"
	LinkTypeEditorial   = "Editorial"
)

// EmailDeployment is a single external send event, keyed by an opaque
// entity identifier assigned by the email platform.
type EmailDeployment struct {
	Entity   string    `json:"entity" db:"entity"`
	Status   string    `json:"status" db:"status"`
	SentDate time.Time `json:"sent_date" db:"sent_date"`
}

// DeploymentURL is the read-optimized join of a tracked URL and a deployment
// it appeared in. Customer, tag, and host fields are denormalized onto the
// row so eligibility queries never join. The ingestion collaborators keep
// this view in sync; this module only reads it.
type DeploymentURL struct {
	ID       string `json:"id" db:"id"`
	URLID    string `json:"url_id" db:"url_id"`
	LinkType string `json:"link_type" db:"link_type"`

	// Targeting scope of the URL itself.
	CustomerID string   `json:"customer_id" db:"customer_id"`
	TagIDs     []string `json:"tag_ids" db:"tag_ids"`

	// Inherited from the URL's resolved host.
	HostCustomerID string   `json:"host_customer_id" db:"host_customer_id"`
	HostTagIDs     []string `json:"host_tag_ids" db:"host_tag_ids"`

	DeploymentEntity   string    `json:"deployment_entity" db:"deployment_entity"`
	DeploymentStatus   string    `json:"deployment_status" db:"deployment_status"`
	DeploymentSentDate time.Time `json:"deployment_sent_date" db:"deployment_sent_date"`
}
