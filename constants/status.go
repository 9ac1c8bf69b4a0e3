package constants

// DocStatus is the canonical status for persisted document records.
type DocStatus string

// Stable values (store these exact strings).
const (
	DocStatusTagged DocStatus = "tagged" // pipeline completed, tags attached
)

// UnknownValue is the sentinel written into string tag fields the extractor
// could not fill. Price uses 0 instead.
const UnknownValue = "Unknown"
