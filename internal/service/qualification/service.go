package qualification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/audience-report/internal/criteria"
	"github.com/ignite/audience-report/internal/domain"
	"github.com/ignite/audience-report/internal/pkg/logger"
)

// Repositories bundles the store access the service depends on.
type Repositories struct {
	Orders          OrderRepository
	Customers       CustomerRepository
	DeploymentURLs  DeploymentURLRepository
	Clicks          ClickRepository
	Identities      IdentityRepository
	ExcludedDomains ExcludedDomainRepository
}

// Service implements the qualification pipeline. All public methods are
// safe for concurrent use if the underlying repositories are.
type Service struct {
	orders          OrderRepository
	customers       CustomerRepository
	deploymentURLs  DeploymentURLRepository
	clicks          ClickRepository
	identities      IdentityRepository
	excludedDomains ExcludedDomainRepository
	counts          CountCache
}

// NewService creates a qualification service backed by the given repositories.
func NewService(r Repositories) *Service {
	return &Service{
		orders:          r.Orders,
		customers:       r.Customers,
		deploymentURLs:  r.DeploymentURLs,
		clicks:          r.Clicks,
		identities:      r.Identities,
		excludedDomains: r.ExcludedDomains,
	}
}

// UseCountCache attaches an advisory count cache. Counts remain correct
// without one; the cache only short-circuits repeated computations of an
// unchanged line item inside the cache TTL.
func (s *Service) UseCountCache(c CountCache) {
	s.counts = c
}

// FindCustomerIDs resolves the line item's customer family: the order's
// customer followed by its non-deleted direct children. Grandchildren are
// deliberately not cascaded.
func (s *Service) FindCustomerIDs(ctx context.Context, li *domain.LineItem) ([]string, error) {
	order, err := s.orders.Get(ctx, li.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", li.OrderID, err)
	}

	root, err := s.customers.Get(ctx, order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer %s: %w", order.CustomerID, err)
	}

	childIDs, err := s.customers.ChildIDs(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("load child customers of %s: %w", root.ID, err)
	}
	return append([]string{root.ID}, childIDs...), nil
}

// BuildDeploymentURLFilter builds the eligibility filter for deployment
// URLs: customer-or-host scope, tag inclusion/exclusion, link types, and
// the grace-extended date window. It does not apply the line item's
// excluded URL pairs.
func (s *Service) BuildDeploymentURLFilter(ctx context.Context, li *domain.LineItem) (DeploymentURLFilter, error) {
	customerIDs, err := s.FindCustomerIDs(ctx, li)
	if err != nil {
		return DeploymentURLFilter{}, err
	}
	return DeploymentURLFilter{
		CustomerIDs:    customerIDs,
		TagIDs:         li.TagIDs,
		ExcludedTagIDs: li.ExcludedTagIDs,
		LinkTypes:      li.LinkTypes,
		Window:         criteria.Window(li),
	}, nil
}

// EligibleURLsAndDeployments resolves the deployment-url pairs matching the
// line item's targeting, removes its excluded (url, deployment) pairs, and
// projects the survivors into parallel id lists.
func (s *Service) EligibleURLsAndDeployments(ctx context.Context, li *domain.LineItem) (EligibleAxes, error) {
	filter, err := s.BuildDeploymentURLFilter(ctx, li)
	if err != nil {
		return EligibleAxes{}, err
	}

	deploymentURLs, err := s.deploymentURLs.Find(ctx, filter)
	if err != nil {
		return EligibleAxes{}, fmt.Errorf("find deployment urls: %w", err)
	}

	var axes EligibleAxes
	for _, du := range deploymentURLs {
		if li.IsExcludedURL(du.URLID, du.DeploymentEntity) {
			continue
		}
		axes.URLIDs = append(axes.URLIDs, du.URLID)
		axes.DeploymentEntities = append(axes.DeploymentEntities, du.DeploymentEntity)
	}
	return axes, nil
}

// AllDeploymentURLs returns every deployment url matching the line item's
// targeting, ignoring the excluded-url list, sorted by sent date ascending.
// Used by unrestricted listing and export contexts.
func (s *Service) AllDeploymentURLs(ctx context.Context, li *domain.LineItem) ([]domain.DeploymentURL, error) {
	filter, err := s.BuildDeploymentURLFilter(ctx, li)
	if err != nil {
		return nil, err
	}
	filter.SortBySentDate = true
	return s.deploymentURLs.Find(ctx, filter)
}

// EligibleIdentityEntities returns the distinct identities that clicked the
// eligible URLs within the eligible deployments inside the date window,
// regardless of whether they qualify.
func (s *Service) EligibleIdentityEntities(ctx context.Context, li *domain.LineItem, axes EligibleAxes) ([]string, error) {
	if axes.Empty() {
		return nil, nil
	}
	entities, err := s.clicks.DistinctIdentityEntities(ctx, ClickWindow{
		URLIDs:             axes.URLIDs,
		DeploymentEntities: axes.DeploymentEntities,
		Window:             criteria.Window(li),
	})
	if err != nil {
		return nil, fmt.Errorf("distinct click identities: %w", err)
	}
	return entities, nil
}

// BuildIdentityExclusionCriteria assembles the compound exclusion predicate
// for the line item. Customer-hierarchy resolution and the excluded-domain
// lookup are independent and run concurrently.
func (s *Service) BuildIdentityExclusionCriteria(ctx context.Context, li *domain.LineItem) (IdentityCriteria, error) {
	type domainsResult struct {
		domains []string
		err     error
	}
	domainsCh := make(chan domainsResult, 1)
	go func() {
		domains, err := s.excludedDomains.DistinctDomains(ctx)
		domainsCh <- domainsResult{domains: domains, err: err}
	}()

	customerIDs, err := s.FindCustomerIDs(ctx, li)
	excluded := <-domainsCh
	if err != nil {
		return IdentityCriteria{}, err
	}
	if excluded.err != nil {
		return IdentityCriteria{}, fmt.Errorf("distinct excluded domains: %w", excluded.err)
	}

	conds, err := criteria.BuildIdentityFilter(li)
	if err != nil {
		return IdentityCriteria{}, err
	}

	return IdentityCriteria{
		CustomerIDs:     customerIDs,
		LineItemID:      li.ID,
		ExcludedDomains: excluded.domains,
		Conditions:      conds,
	}, nil
}

type eligibleResult struct {
	entities []string
	err      error
}

// eligibleEntitiesAsync resolves the eligible identity set in a goroutine so
// callers can overlap it with independent criteria construction.
func (s *Service) eligibleEntitiesAsync(ctx context.Context, li *domain.LineItem) <-chan eligibleResult {
	ch := make(chan eligibleResult, 1)
	go func() {
		axes, err := s.EligibleURLsAndDeployments(ctx, li)
		if err != nil {
			ch <- eligibleResult{err: err}
			return
		}
		entities, err := s.EligibleIdentityEntities(ctx, li, axes)
		ch <- eligibleResult{entities: entities, err: err}
	}()
	return ch
}

// QualifiedIdentityCount reports how many eligible identities exist for the
// line item, how many of them qualify under the exclusion criteria, and how
// many were scrubbed. Eligibility resolution and exclusion-criteria
// construction run concurrently; if either fails the whole operation fails.
func (s *Service) QualifiedIdentityCount(ctx context.Context, li *domain.LineItem) (QualifiedCounts, error) {
	cacheKey := ""
	if s.counts != nil {
		cacheKey = criteria.HashLineItem(li)
		if cached, ok, err := s.counts.Get(ctx, cacheKey); err != nil {
			logger.Warn("count cache get failed, recomputing", "line_item", li.ID, "error", err)
		} else if ok {
			return *cached, nil
		}
	}

	eligCh := s.eligibleEntitiesAsync(ctx, li)
	crit, err := s.BuildIdentityExclusionCriteria(ctx, li)
	elig := <-eligCh
	if err != nil {
		return QualifiedCounts{}, err
	}
	if elig.err != nil {
		return QualifiedCounts{}, elig.err
	}

	counts := QualifiedCounts{Total: len(elig.entities)}
	if counts.Total > 0 {
		crit.Entities = elig.entities
		qualified, err := s.identities.CountMatching(ctx, crit)
		if err != nil {
			return QualifiedCounts{}, fmt.Errorf("count qualified identities: %w", err)
		}
		counts.Qualified = qualified
		counts.Scrubbed = counts.Total - qualified
	}

	if s.counts != nil {
		if err := s.counts.Set(ctx, cacheKey, counts); err != nil {
			logger.Warn("count cache set failed", "line_item", li.ID, "error", err)
		}
	}
	return counts, nil
}

// ActiveIdentityEntities returns the eligible identities that satisfy the
// exclusion criteria, capped at the line item's RequiredLeads (a cap <= 0
// means no cap). Order follows the underlying identity store; callers must
// not assume a sort.
func (s *Service) ActiveIdentityEntities(ctx context.Context, li *domain.LineItem) ([]string, error) {
	axes, err := s.EligibleURLsAndDeployments(ctx, li)
	if err != nil {
		return nil, err
	}
	return s.activeIdentityEntities(ctx, li, axes)
}

func (s *Service) activeIdentityEntities(ctx context.Context, li *domain.LineItem, axes EligibleAxes) ([]string, error) {
	eligCh := s.eligibleEntitiesFromAxesAsync(ctx, li, axes)
	crit, err := s.BuildIdentityExclusionCriteria(ctx, li)
	elig := <-eligCh
	if err != nil {
		return nil, err
	}
	if elig.err != nil {
		return nil, elig.err
	}
	if len(elig.entities) == 0 {
		return nil, nil
	}

	crit.Entities = elig.entities
	entities, err := s.identities.FindEntities(ctx, crit, li.RequiredLeads)
	if err != nil {
		return nil, fmt.Errorf("find active identities: %w", err)
	}
	return entities, nil
}

// eligibleEntitiesFromAxesAsync is eligibleEntitiesAsync with pre-resolved axes.
func (s *Service) eligibleEntitiesFromAxesAsync(ctx context.Context, li *domain.LineItem, axes EligibleAxes) <-chan eligibleResult {
	ch := make(chan eligibleResult, 1)
	go func() {
		entities, err := s.EligibleIdentityEntities(ctx, li, axes)
		ch <- eligibleResult{entities: entities, err: err}
	}()
	return ch
}

// InactiveIdentityEntities returns the eligible identities that are
// deactivated globally, for the customer scope, or for this line item.
// Attribute filters and required fields do not factor in.
func (s *Service) InactiveIdentityEntities(ctx context.Context, li *domain.LineItem) ([]string, error) {
	eligCh := s.eligibleEntitiesAsync(ctx, li)
	customerIDs, err := s.FindCustomerIDs(ctx, li)
	elig := <-eligCh
	if err != nil {
		return nil, err
	}
	if elig.err != nil {
		return nil, elig.err
	}
	if len(elig.entities) == 0 {
		return nil, nil
	}

	entities, err := s.identities.DistinctInactiveEntities(ctx, InactiveQuery{
		Entities:    elig.entities,
		CustomerIDs: customerIDs,
		LineItemID:  li.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("find inactive identities: %w", err)
	}
	return entities, nil
}

// ClickEventIdentifiers bundles the active identity entities with the
// eligible URL and deployment ids, for callers needing all three axes.
func (s *Service) ClickEventIdentifiers(ctx context.Context, li *domain.LineItem) (ClickIdentifiers, error) {
	axes, err := s.EligibleURLsAndDeployments(ctx, li)
	if err != nil {
		return ClickIdentifiers{}, err
	}
	identityEntities, err := s.activeIdentityEntities(ctx, li, axes)
	if err != nil {
		return ClickIdentifiers{}, err
	}
	return ClickIdentifiers{
		IdentityEntities:   identityEntities,
		URLIDs:             axes.URLIDs,
		DeploymentEntities: axes.DeploymentEntities,
	}, nil
}

// BuildExportSpec snapshots the three click axes and the effective window
// into the canonical clicks-per-identity projection. The spec is executed by
// ClickRepository.AggregateByIdentity (see AggregateClicks).
func (s *Service) BuildExportSpec(ctx context.Context, li *domain.LineItem) (*ExportSpec, error) {
	ids, err := s.ClickEventIdentifiers(ctx, li)
	if err != nil {
		return nil, err
	}
	return &ExportSpec{
		ID:                 uuid.New().String(),
		LineItemID:         li.ID,
		IdentityEntities:   ids.IdentityEntities,
		URLIDs:             ids.URLIDs,
		DeploymentEntities: ids.DeploymentEntities,
		Window:             criteria.Window(li),
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// AggregateClicks executes an export spec, returning one row per identity
// with its distinct clicked URLs, deployments, and summed click count.
func (s *Service) AggregateClicks(ctx context.Context, spec *ExportSpec) ([]domain.IdentityClicks, error) {
	if len(spec.IdentityEntities) == 0 {
		return nil, nil
	}
	return s.clicks.AggregateByIdentity(ctx, spec)
}

// IdentityFieldProjection returns the export projection for identity
// attributes: each excluded field maps to false (omit). Fields absent from
// the map are included.
func (s *Service) IdentityFieldProjection(li *domain.LineItem) map[string]bool {
	projection := make(map[string]bool, len(li.ExcludedFields))
	for _, field := range li.ExcludedFields {
		projection[field] = false
	}
	return projection
}

// SetIdentityActivation toggles the global opt-out flag for an identity.
func (s *Service) SetIdentityActivation(ctx context.Context, identityID string, active bool) error {
	return s.identities.SetActivation(ctx, identityID, active)
}

// SetCustomerActivation toggles a customer-scope opt-out for an identity.
func (s *Service) SetCustomerActivation(ctx context.Context, identityID, customerID string, active bool) error {
	return s.identities.SetCustomerActivation(ctx, identityID, customerID, active)
}

// SetLineItemActivation toggles a line-item-scope opt-out for an identity.
func (s *Service) SetLineItemActivation(ctx context.Context, identityID, lineItemID string, active bool) error {
	return s.identities.SetLineItemActivation(ctx, identityID, lineItemID, active)
}
