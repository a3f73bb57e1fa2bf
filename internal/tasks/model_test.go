package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	items := func(n, k int) []ChecklistItem {
		out := make([]ChecklistItem, n)
		for i := 0; i < k; i++ {
			out[i].Checked = true
		}
		return out
	}
	tests := []struct {
		n, k int
		want int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 100},
		{2, 1, 50},
		{3, 1, 33},
		{3, 2, 67},
		{8, 1, 13},
		{7, 7, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Progress(items(tt.n, tt.k)), "n=%d k=%d", tt.n, tt.k)
	}
	assert.Equal(t, 0, Progress(nil))
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"not_started": StatusNotStarted,
		"진행중":         StatusInProgress,
		" 완료 ":        StatusDone,
	} {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseStatus("blocked")
	assert.False(t, ok)
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, NormalizePriority("높음"))
	assert.Equal(t, PriorityLow, NormalizePriority("low"))
	assert.Equal(t, PriorityNormal, NormalizePriority(""))
	assert.Equal(t, PriorityNormal, NormalizePriority("critical"))
	assert.True(t, PriorityLow.Valid())
	assert.False(t, Priority("낮음").Valid())
}

func TestPatchApply(t *testing.T) {
	task := Task{Status: StatusNotStarted, Assignee: "a", Items: []ChecklistItem{{Text: "x"}}}
	st := StatusDone
	Patch{Status: &st}.Apply(&task)

	assert.Equal(t, StatusDone, task.Status)
	assert.Equal(t, "a", task.Assignee)
	assert.Len(t, task.Items, 1, "nil items leave checklist untouched")
}
