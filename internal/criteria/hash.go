package criteria

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ignite/audience-report/internal/domain"
)

// HashLineItem generates a deterministic hash of the line item's targeting
// configuration, for keying cached qualification counts. Two line items with
// identical configuration hash identically; any targeting change produces a
// new key.
func HashLineItem(li *domain.LineItem) string {
	data := struct {
		ID              string                  `json:"id"`
		OrderID         string                  `json:"order_id"`
		Start           time.Time               `json:"start"`
		End             time.Time               `json:"end"`
		TagIDs          []string                `json:"tag_ids"`
		ExcludedTagIDs  []string                `json:"excluded_tag_ids"`
		LinkTypes       []string                `json:"link_types"`
		ExcludedURLs    []domain.ExcludedURL    `json:"excluded_urls"`
		IdentityFilters []domain.IdentityFilter `json:"identity_filters"`
		RequiredFields  []string                `json:"required_fields"`
	}{
		ID:              li.ID,
		OrderID:         li.OrderID,
		Start:           li.Range.Start.UTC(),
		End:             li.Range.End.UTC(),
		TagIDs:          li.TagIDs,
		ExcludedTagIDs:  li.ExcludedTagIDs,
		LinkTypes:       li.LinkTypes,
		ExcludedURLs:    li.ExcludedURLs,
		IdentityFilters: li.IdentityFilters,
		RequiredFields:  li.RequiredFields,
	}

	jsonBytes, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}
