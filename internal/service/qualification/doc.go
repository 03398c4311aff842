// Package qualification answers which identities qualify as audience members
// for a line item, based on their email-click behavior.
//
// The pipeline runs in stages: resolve the customer family and the eligible
// deployment URLs for the line item's targeting rules, collapse matching
// click events into a distinct identity set, build the compound exclusion
// criteria (opt-out flags, domain denylist, attribute filters), and combine
// them into counts, bounded active lists, or a grouped click aggregation for
// export. Every call is a stateless computation over the current data
// snapshot.
//
// The service depends on repository interfaces defined in this package.
// Implementations live in repository/postgres/; tests use in-memory fakes.
package qualification
