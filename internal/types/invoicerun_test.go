package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchSourceKey(t *testing.T) {
	key := BatchSourceKey("batch_0001")
	assert.Equal(t, SourceKey("batch:batch_0001"), key)
	assert.Equal(t, "batch_0001", key.BatchID())

	_, _, ok := key.TimeRange()
	assert.False(t, ok)
}

func TestTimeRangeSourceKey(t *testing.T) {
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	key := TimeRangeSourceKey(from, to)
	assert.Equal(t, SourceKey("time:2025-07-01T00:00:00Z:2025-08-01T00:00:00Z"), key)
	assert.Empty(t, key.BatchID())

	gotFrom, gotTo, ok := key.TimeRange()
	assert.True(t, ok)
	assert.True(t, gotFrom.Equal(from))
	assert.True(t, gotTo.Equal(to))
}

func TestTimeRangeSourceKeyNonUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	from := time.Date(2025, 7, 1, 2, 0, 0, 0, loc)
	to := time.Date(2025, 7, 2, 2, 0, 0, 0, loc)

	key := TimeRangeSourceKey(from, to)
	gotFrom, gotTo, ok := key.TimeRange()
	assert.True(t, ok)
	assert.True(t, gotFrom.Equal(from))
	assert.True(t, gotTo.Equal(to))
}

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusQueued.Terminal())
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusSucceeded.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
}
