package domain

// Identity is a tracked end-user profile accumulating click history.
// Entity is the stable external reference used throughout the qualification
// pipeline; ID is the store primary key.
//
// The three inactive scopes are independent opt-outs: Inactive suppresses
// the identity everywhere, InactiveCustomerIDs per customer family, and
// InactiveLineItemIDs per line item.
type Identity struct {
	ID                  string            `json:"id" db:"id"`
	Entity              string            `json:"entity" db:"entity"`
	EmailDomain         string            `json:"email_domain" db:"email_domain"`
	Inactive            bool              `json:"inactive" db:"inactive"`
	InactiveCustomerIDs []string          `json:"inactive_customer_ids" db:"inactive_customer_ids"`
	InactiveLineItemIDs []string          `json:"inactive_line_item_ids" db:"inactive_line_item_ids"`
	Attributes          map[string]string `json:"attributes" db:"attributes"`
}

// Attribute returns the named profile attribute, or "" when unset.
func (i *Identity) Attribute(key string) string {
	if i.Attributes == nil {
		return ""
	}
	return i.Attributes[key]
}

// ExcludedEmailDomain is a denylist entry. Membership excludes every
// identity whose email domain matches.
type ExcludedEmailDomain struct {
	Domain string `json:"domain" db:"domain"`
}
