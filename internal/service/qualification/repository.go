package qualification

import (
	"context"
	"time"

	"github.com/ignite/audience-report/internal/criteria"
	"github.com/ignite/audience-report/internal/domain"
)

// OrderRepository loads orders. Implementations must be safe for concurrent
// use.
type OrderRepository interface {
	// Get returns a single order. Returns ErrOrderNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// CustomerRepository loads customers and resolves one level of hierarchy.
type CustomerRepository interface {
	// Get returns a single customer. Returns ErrCustomerNotFound if it
	// doesn't exist.
	Get(ctx context.Context, id string) (*domain.Customer, error)

	// ChildIDs returns the ids of all non-deleted direct children of the
	// given customer, in retrieval order.
	ChildIDs(ctx context.Context, parentID string) ([]string, error)
}

// DeploymentURLFilter restricts deployment-url lookups by customer scope,
// tags, link types, and sent-date window. It never restricts by a line
// item's excluded URL pairs; that filtering happens in the service.
type DeploymentURLFilter struct {
	// CustomerIDs match against either the URL's own customer or its
	// host's customer.
	CustomerIDs []string

	// TagIDs, when present, require the URL's own tags or its host's tags
	// to intersect.
	TagIDs []string

	// ExcludedTagIDs, when present, require both the URL's own tags and
	// its host's tags to not intersect.
	ExcludedTagIDs []string

	LinkTypes []string
	Window    domain.DateRange

	// SortBySentDate orders results by deployment sent date ascending.
	SortBySentDate bool
}

// DeploymentURLRepository reads the denormalized deployment-url view.
type DeploymentURLRepository interface {
	Find(ctx context.Context, f DeploymentURLFilter) ([]domain.DeploymentURL, error)
}

// ClickWindow bounds a click-event query to eligible URLs, deployments, and
// the line item's effective date window.
type ClickWindow struct {
	URLIDs             []string
	DeploymentEntities []string
	Window             domain.DateRange
}

// ClickRepository aggregates click events.
type ClickRepository interface {
	// DistinctIdentityEntities returns the distinct identity entities that
	// clicked within the window, ignoring click counts.
	DistinctIdentityEntities(ctx context.Context, w ClickWindow) ([]string, error)

	// AggregateByIdentity executes an export spec: per identity, the
	// distinct URLs and deployments clicked, and the summed click count
	// (n plus the guid count of each event).
	AggregateByIdentity(ctx context.Context, spec *ExportSpec) ([]domain.IdentityClicks, error)
}

// IdentityCriteria is the compound exclusion predicate for identities.
// All clauses are conjoined: the identity must be in Entities, not globally
// inactive, not opted out for any of CustomerIDs or for LineItemID, not on
// an excluded email domain, and must satisfy every attribute condition.
type IdentityCriteria struct {
	Entities        []string
	CustomerIDs     []string
	LineItemID      string
	ExcludedDomains []string
	Conditions      []criteria.Condition
}

// InactiveQuery selects eligible identities that are deactivated globally,
// for the customer scope, or for the line item (the activity negation of
// IdentityCriteria, independent of attribute conditions).
type InactiveQuery struct {
	Entities    []string
	CustomerIDs []string
	LineItemID  string
}

// IdentityRepository reads and updates identity activation state.
type IdentityRepository interface {
	// CountMatching returns the number of identities satisfying the criteria.
	CountMatching(ctx context.Context, c IdentityCriteria) (int, error)

	// FindEntities returns entities of identities satisfying the criteria,
	// in natural store order. A limit <= 0 means no cap.
	FindEntities(ctx context.Context, c IdentityCriteria, limit int) ([]string, error)

	// DistinctInactiveEntities returns the distinct entities matching the
	// inactive disjunction.
	DistinctInactiveEntities(ctx context.Context, q InactiveQuery) ([]string, error)

	// SetActivation sets or clears the global opt-out flag. Returns
	// ErrIdentityNotFound if the identity doesn't exist.
	SetActivation(ctx context.Context, identityID string, active bool) error

	// SetCustomerActivation adds (active=false) or removes (active=true)
	// a customer-scope opt-out. Idempotent.
	SetCustomerActivation(ctx context.Context, identityID, customerID string, active bool) error

	// SetLineItemActivation adds or removes a line-item-scope opt-out.
	// Idempotent.
	SetLineItemActivation(ctx context.Context, identityID, lineItemID string, active bool) error
}

// ExcludedDomainRepository reads the email-domain denylist.
type ExcludedDomainRepository interface {
	DistinctDomains(ctx context.Context) ([]string, error)
}

// EligibleAxes carries the parallel URL and deployment id lists that survive
// eligibility resolution.
type EligibleAxes struct {
	URLIDs             []string
	DeploymentEntities []string
}

// Empty reports whether no eligible pairs survived.
func (a EligibleAxes) Empty() bool {
	return len(a.URLIDs) == 0 || len(a.DeploymentEntities) == 0
}

// ClickIdentifiers bundles all three axes of a line item's click activity:
// the active identity entities plus the eligible URL and deployment ids.
type ClickIdentifiers struct {
	IdentityEntities   []string
	URLIDs             []string
	DeploymentEntities []string
}

// ExportSpec is a point-in-time snapshot of the axes and window that define
// the canonical clicks-per-identity projection consumed by export rendering.
type ExportSpec struct {
	ID                 string
	LineItemID         string
	IdentityEntities   []string
	URLIDs             []string
	DeploymentEntities []string
	Window             domain.DateRange
	CreatedAt          time.Time
}

// QualifiedCounts is the qualification summary for a line item.
// Qualified + Scrubbed always equals Total.
type QualifiedCounts struct {
	Total     int `json:"total"`
	Qualified int `json:"qualified"`
	Scrubbed  int `json:"scrubbed"`
}

// CountCache is an optional, advisory cache for qualification counts.
// Implementations bound entries with a TTL; a miss or transport error simply
// forces recomputation.
type CountCache interface {
	Get(ctx context.Context, key string) (*QualifiedCounts, bool, error)
	Set(ctx context.Context, key string, counts QualifiedCounts) error
}
