package items

import (
	"math"

	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
)

// Totals buckets a team's items by review outcome. Unknown statuses
// are excluded from every bucket, including Total.
type Totals struct {
	ToReview  int64 `json:"to_review"`
	Completed int64 `json:"completed"`
	Shortages int64 `json:"shortages"`
	Damaged   int64 `json:"damaged"`
	Total     int64 `json:"total"`
}

// ComputeTotals folds per-status counts into review buckets.
func ComputeTotals(counts map[enums.ItemStatus]int64) Totals {
	var t Totals
	for status, n := range counts {
		switch status {
		case enums.ItemStatusIncomplete:
			t.ToReview += n
		case enums.ItemStatusFound, enums.ItemStatusCompleted:
			t.Completed += n
		case enums.ItemStatusMissing:
			t.Shortages += n
		case enums.ItemStatusDamaged:
			t.Damaged += n
		default:
			continue
		}
		t.Total += n
	}
	return t
}

// Reviewed counts every item that has moved past Incomplete.
func (t Totals) Reviewed() int64 {
	return t.Completed + t.Shortages + t.Damaged
}

// PercentReviewed reports review progress as a rounded percentage.
// An empty team is 0%.
func (t Totals) PercentReviewed() int {
	if t.Total == 0 {
		return 0
	}
	return int(math.Round(float64(t.Reviewed()) / float64(t.Total) * 100))
}
