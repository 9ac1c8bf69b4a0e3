package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/shamsaravaiah/receiptdrop/constants"
)

// TagSet is the fixed-shape structured result produced per document.
// All three fields are always present: unknown strings carry the sentinel
// "Unknown", unknown prices carry 0.
type TagSet struct {
	Vendor           string  `json:"vendor"`
	ProductOrService string  `json:"product_or_service"`
	Price            float64 `json:"price"`
}

// UnknownTags is the fallback TagSet used when extraction degrades.
func UnknownTags() TagSet {
	return TagSet{
		Vendor:           constants.UnknownValue,
		ProductOrService: constants.UnknownValue,
		Price:            0,
	}
}

// MetadataRecord is the unit persisted to the document store, created exactly
// once per successfully processed upload and immutable thereafter.
type MetadataRecord struct {
	ID               uuid.UUID           `json:"id"`
	JobID            uuid.UUID           `json:"job_id"`
	UserID           string              `json:"user_id"`
	UserDirectory    string              `json:"user_directory"`
	SourcePath       string              `json:"original_blob_name"` // raw artifact storage path; dedup key
	IngestedURL      string              `json:"ingested_path"`      // dereferenceable locator from storage
	OriginalFilename string              `json:"original_filename"`
	IngestedAt       time.Time           `json:"timestamp"`
	Status           constants.DocStatus `json:"status"`
	Tags             TagSet              `json:"tags"`

	// TagsDegraded marks records whose TagSet is the extraction fallback
	// rather than a genuine "nothing on the receipt" result. Not an error.
	TagsDegraded bool `json:"tags_degraded,omitempty"`
}
