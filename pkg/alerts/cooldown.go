package alerts

import (
	"fmt"
	"sync"
	"time"
)

// CooldownWindow is how long a (node, metric) pair stays silenced after an
// alert fires. The window starts when the alert fires, not when delivery
// succeeds.
const CooldownWindow = 15 * time.Minute

// CooldownTracker remembers when each (node, metric) pair last fired.
// State is in-memory only; a restart clears it, which at worst re-fires
// an alert one window early.
type CooldownTracker struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	now       func() time.Time
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

func cooldownKey(node, metric string) string {
	return fmt.Sprintf("%s/%s", node, metric)
}

// OnCooldown reports whether the pair fired within the last CooldownWindow.
func (t *CooldownTracker) OnCooldown(node, metric string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	fired, ok := t.lastFired[cooldownKey(node, metric)]
	if !ok {
		return false
	}
	return t.now().Sub(fired) < CooldownWindow
}

// MarkFired starts the cooldown window for the pair.
func (t *CooldownTracker) MarkFired(node, metric string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired[cooldownKey(node, metric)] = t.now()
}
