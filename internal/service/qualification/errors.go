package qualification

import "errors"

// Sentinel errors for the qualification service layer. A line item is never
// valid without a resolvable order and root customer, so missing referents
// surface as errors rather than empty result sets.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrIdentityNotFound = errors.New("identity not found")
)
