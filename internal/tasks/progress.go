package tasks

import "math"

// Progress returns the checked share of items as a rounded percentage.
// An empty checklist is 0.
func Progress(items []ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	checked := 0
	for _, it := range items {
		if it.Checked {
			checked++
		}
	}
	return int(math.Round(100 * float64(checked) / float64(len(items))))
}
