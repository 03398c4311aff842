package domain

import (
	"time"
)

// MatchType enumerates the supported identity-filter matching modes.
type MatchType string

const (
	MatchContains MatchType = "contains"
	MatchStarts   MatchType = "starts"
	MatchMatches  MatchType = "matches"
)

// DateRange is the inclusive targeting window of a line item.
type DateRange struct {
	Start time.Time `json:"start" db:"range_start"`
	End   time.Time `json:"end" db:"range_end"`
}

// Contains reports whether t falls inside the range, inclusive on both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// IdentityFilter excludes identities whose field value matches any of the
// terms under the given match type.
type IdentityFilter struct {
	Key       string    `json:"key"`
	MatchType MatchType `json:"matchType"`
	Terms     []string  `json:"terms"`
}

// ExcludedURL is a (url, deployment) pair removed from a line item's
// eligible set.
type ExcludedURL struct {
	URLID            string `json:"urlId"`
	DeploymentEntity string `json:"deploymentEntity"`
}

// LineItem is a configured audience-targeting and reporting unit tied to an
// order. This module reads line items; they are mutated by the configuration
// UI, which is out of scope here.
type LineItem struct {
	ID              string           `json:"id" db:"id"`
	OrderID         string           `json:"order_id" db:"order_id"`
	Name            string           `json:"name" db:"name"`
	Range           DateRange        `json:"range"`
	TagIDs          []string         `json:"tag_ids" db:"tag_ids"`
	ExcludedTagIDs  []string         `json:"excluded_tag_ids" db:"excluded_tag_ids"`
	LinkTypes       []string         `json:"link_types" db:"link_types"`
	ExcludedURLs    []ExcludedURL    `json:"excluded_urls"`
	IdentityFilters []IdentityFilter `json:"identity_filters"`
	RequiredFields  []string         `json:"required_fields"`
	RequiredLeads   int              `json:"required_leads" db:"required_leads"`

	// ExcludedFields are identity attribute names omitted from export
	// projections for this line item.
	ExcludedFields []string `json:"excluded_fields"`
}

// IsExcludedURL reports whether the exact (urlID, deploymentEntity) pair is
// on the line item's exclusion list.
func (li *LineItem) IsExcludedURL(urlID, deploymentEntity string) bool {
	for _, e := range li.ExcludedURLs {
		if e.URLID == urlID && e.DeploymentEntity == deploymentEntity {
			return true
		}
	}
	return false
}

// Order owns line items and binds them to a customer.
type Order struct {
	ID         string    `json:"id" db:"id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
