package domain

import "time"

// ClickEvent is one recorded click (or de-duplicated click burst) by an
// identity on a tracked URL within a deployment. N counts the primary
// clicks; GUIDs carries additional distinct click identifiers that also
// contribute to the total.
type ClickEvent struct {
	ID               string    `json:"id" db:"id"`
	IdentityEntity   string    `json:"identity_entity" db:"identity_entity"`
	URLID            string    `json:"url_id" db:"url_id"`
	DeploymentEntity string    `json:"deployment_entity" db:"deployment_entity"`
	N                int       `json:"n" db:"n"`
	GUIDs            []string  `json:"guids" db:"guids"`
	EventDate        time.Time `json:"event_date" db:"event_date"`
}

// TotalClicks returns the event's contribution to a click-count sum.
func (c ClickEvent) TotalClicks() int {
	return c.N + len(c.GUIDs)
}

// IdentityClicks is one row of the per-identity click aggregation: the
// distinct URLs and deployments an identity clicked inside the report
// window, and its summed click count.
type IdentityClicks struct {
	IdentityEntity     string   `json:"identity_entity"`
	URLIDs             []string `json:"url_ids"`
	DeploymentEntities []string `json:"deployment_entities"`
	Clicks             int      `json:"clicks"`
}
