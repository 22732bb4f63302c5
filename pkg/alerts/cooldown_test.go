package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownTrackerWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	tracker := NewCooldownTracker()
	tracker.now = func() time.Time { return now }

	assert.False(t, tracker.OnCooldown("pve1", "cpu"))

	tracker.MarkFired("pve1", "cpu")
	assert.True(t, tracker.OnCooldown("pve1", "cpu"))

	// Other pairs are independent
	assert.False(t, tracker.OnCooldown("pve1", "memory"))
	assert.False(t, tracker.OnCooldown("pve2", "cpu"))

	now = now.Add(14 * time.Minute)
	assert.True(t, tracker.OnCooldown("pve1", "cpu"))

	now = now.Add(2 * time.Minute)
	assert.False(t, tracker.OnCooldown("pve1", "cpu"))
}
