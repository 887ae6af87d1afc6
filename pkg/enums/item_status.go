package enums

import "fmt"

// ItemStatus captures where an inventory item stands in a review cycle.
type ItemStatus string

const (
	ItemStatusIncomplete ItemStatus = "Incomplete"
	ItemStatusFound      ItemStatus = "Found"
	ItemStatusCompleted  ItemStatus = "Completed"
	ItemStatusMissing    ItemStatus = "Missing"
	ItemStatusDamaged    ItemStatus = "Damaged"
)

var validItemStatuses = []ItemStatus{
	ItemStatusIncomplete,
	ItemStatusFound,
	ItemStatusCompleted,
	ItemStatusMissing,
	ItemStatusDamaged,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Reviewed reports whether the status counts toward review progress.
// Incomplete is the only unreviewed state.
func (s ItemStatus) Reviewed() bool {
	return s.IsValid() && s != ItemStatusIncomplete
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
