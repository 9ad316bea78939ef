package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInstallQueueRunsOneAtATime(t *testing.T) {
	q := NewInstallQueue()
	defer q.Close()

	id1 := q.Enqueue("engineA", "true", nil, "")
	id2 := q.Enqueue("engineB", "true", nil, "")
	require.NotEqual(t, id1, id2)

	require.Eventually(t, func() bool {
		return len(q.History()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	for _, j := range q.History() {
		require.False(t, j.Cancelled)
		require.NoError(t, j.Err)
	}
}

func TestInstallQueueCancelBeforeStart(t *testing.T) {
	q := NewInstallQueue()
	defer q.Close()

	// Enqueue a slow job first so the second stays queued long enough to
	// cancel.
	q.Enqueue("slow", "sleep", []string{"1"}, "")
	id2 := q.Enqueue("fast", "true", nil, "")

	require.True(t, q.Cancel(id2))

	require.Eventually(t, func() bool {
		for _, j := range q.History() {
			if j.Name == "fast" {
				return j.Cancelled
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}
