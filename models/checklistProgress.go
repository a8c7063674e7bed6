package models

import (
	"fmt"

	"github.com/mmdatafocus/brokerage_backend/config"
)

type PhaseProgress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ChecklistProgress: phase1 = opening, phase2 = processing, phase3 = closing.
type ChecklistProgress struct {
	Phase1  PhaseProgress `json:"phase1"`
	Phase2  PhaseProgress `json:"phase2"`
	Phase3  PhaseProgress `json:"phase3"`
	Overall PhaseProgress `json:"overall"`
}

// CalculateChecklistProgress buckets items by phase. Items whose phase is not
// one of the three known phases count nowhere; the second result is how many
// were skipped.
func CalculateChecklistProgress(items []ChecklistItem) (ChecklistProgress, int) {
	var progress ChecklistProgress
	skipped := 0
	for _, item := range items {
		var bucket *PhaseProgress
		switch item.Phase {
		case ChecklistPhaseOpening:
			bucket = &progress.Phase1
		case ChecklistPhaseProcessing:
			bucket = &progress.Phase2
		case ChecklistPhaseClosing:
			bucket = &progress.Phase3
		default:
			skipped++
			continue
		}
		bucket.Total++
		if item.IsCompleted {
			bucket.Completed++
		}
	}

	for _, bucket := range []*PhaseProgress{&progress.Phase1, &progress.Phase2, &progress.Phase3} {
		bucket.Percentage = roundedPercentage(bucket.Completed, bucket.Total)
		progress.Overall.Completed += bucket.Completed
		progress.Overall.Total += bucket.Total
	}
	progress.Overall.Percentage = roundedPercentage(progress.Overall.Completed, progress.Overall.Total)
	return progress, skipped
}

// roundedPercentage is completed/total*100 rounded half up, 0 for an empty bucket.
func roundedPercentage(completed int, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (2 * total)
}

func checklistProgressFor(displayId string, items []ChecklistItem) ChecklistProgress {
	progress, skipped := CalculateChecklistProgress(items)
	if skipped > 0 {
		config.LogWarn(config.GetLogger(), "ChecklistProgress", "checklistProgressFor", "items with unknown phase excluded",
			displayId, fmt.Errorf("%d checklist item(s) with unknown phase", skipped))
	}
	return progress
}
